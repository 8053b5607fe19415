package types

import (
	"strings"
	"time"
)

// SkillCategory 技能分类枚举.
type SkillCategory string

const (
	CategoryConversation SkillCategory = "conversation"
	CategoryKnowledge    SkillCategory = "knowledge"
	CategoryCreative     SkillCategory = "creative"
	CategoryUtility      SkillCategory = "utility"
)

// Categories lists all known skill categories in declaration order.
func Categories() []SkillCategory {
	return []SkillCategory{
		CategoryConversation,
		CategoryKnowledge,
		CategoryCreative,
		CategoryUtility,
	}
}

// SkillPriority 技能优先级.
type SkillPriority string

const (
	PriorityLow      SkillPriority = "low"
	PriorityMedium   SkillPriority = "medium"
	PriorityHigh     SkillPriority = "high"
	PriorityCritical SkillPriority = "critical"
)

// ExecutionStatus 技能执行状态机.
//
// pending → running → {completed | failed | timeout | cancelled}
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusTimeout   ExecutionStatus = "timeout"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// SkillTrigger 技能触发条件.
type SkillTrigger struct {
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Patterns        []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	IntentTypes     []string `json:"intent_types,omitempty" yaml:"intent_types,omitempty"`
	EmotionalStates []string `json:"emotional_states,omitempty" yaml:"emotional_states,omitempty"`
}

// SkillMetadata 技能元数据 — 注册时创建，之后不可变.
type SkillMetadata struct {
	Name        string        `json:"name" yaml:"name"`
	DisplayName string        `json:"display_name" yaml:"display_name"`
	Description string        `json:"description" yaml:"description"`
	Category    SkillCategory `json:"category" yaml:"category"`
	Version     string        `json:"version" yaml:"version"`
	Author      string        `json:"author,omitempty" yaml:"author,omitempty"`

	// 能力配置
	Triggers               SkillTrigger  `json:"triggers" yaml:"triggers"`
	Priority               SkillPriority `json:"priority" yaml:"priority"`
	CharacterCompatibility []string      `json:"character_compatibility,omitempty" yaml:"character_compatibility,omitempty"`
	Dependencies           []string      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// 性能配置
	MaxExecutionTime time.Duration `json:"max_execution_time" yaml:"max_execution_time"`
	ConcurrentLimit  int           `json:"concurrent_limit" yaml:"concurrent_limit"`
	CacheResults     bool          `json:"cache_results" yaml:"cache_results"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
}

// Validate 校验元数据；错误在注册时暴露，而不是在每次请求时.
func (m *SkillMetadata) Validate() []string {
	var errs []string
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "skill name must not be empty")
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		errs = append(errs, "display name must not be empty")
	}
	if strings.TrimSpace(m.Description) == "" {
		errs = append(errs, "description must not be empty")
	}
	if m.Version == "" || !strings.Contains(m.Version, ".") {
		errs = append(errs, "version format is invalid")
	}
	if m.MaxExecutionTime <= 0 {
		errs = append(errs, "max execution time must be positive")
	}
	if m.ConcurrentLimit <= 0 {
		errs = append(errs, "concurrent limit must be positive")
	}
	return errs
}

// CompatibleWith reports whether the skill may serve the given character.
// An empty compatibility list means unrestricted.
func (m *SkillMetadata) CompatibleWith(characterName string) bool {
	if len(m.CharacterCompatibility) == 0 {
		return true
	}
	for _, name := range m.CharacterCompatibility {
		if name == characterName {
			return true
		}
	}
	return false
}

// SkillConfig 角色特定的技能配置. 外部角色配置存储提供；缺省时使用 DefaultSkillConfig.
type SkillConfig struct {
	SkillName     string `json:"skill_name" yaml:"skill_name"`
	CharacterID   int64  `json:"character_id,omitempty" yaml:"character_id,omitempty"`
	CharacterName string `json:"character_name,omitempty" yaml:"character_name,omitempty"`

	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Weight     float64        `json:"weight" yaml:"weight"`       // 得分乘数, 0-10
	Threshold  float64        `json:"threshold" yaml:"threshold"` // 触发阈值, 0-1
	Priority   SkillPriority  `json:"priority" yaml:"priority"`

	Personalization map[string]any `json:"personalization,omitempty" yaml:"personalization,omitempty"`

	Enabled                bool          `json:"enabled" yaml:"enabled"`
	MaxUsesPerConversation int           `json:"max_uses_per_conversation,omitempty" yaml:"max_uses_per_conversation,omitempty"` // 0 = 不限
	Cooldown               time.Duration `json:"cooldown" yaml:"cooldown"`
}

// DefaultSkillConfig returns the config applied when the character store has
// no entry for the skill.
func DefaultSkillConfig(skillName string) SkillConfig {
	return SkillConfig{
		SkillName: skillName,
		Weight:    1.0,
		Threshold: 0.5,
		Priority:  PriorityMedium,
		Enabled:   true,
	}
}

// Validate 校验配置的数值范围.
func (c *SkillConfig) Validate() []string {
	var errs []string
	if c.Weight < 0 || c.Weight > 10 {
		errs = append(errs, "weight must be within [0, 10]")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, "threshold must be within [0, 1]")
	}
	if c.Cooldown < 0 {
		errs = append(errs, "cooldown must not be negative")
	}
	if c.MaxUsesPerConversation < 0 {
		errs = append(errs, "max uses per conversation must not be negative")
	}
	return errs
}

// SkillResult 单次技能执行的结果. 返回后不可变.
type SkillResult struct {
	SkillName   string          `json:"skill_name"`
	ExecutionID string          `json:"execution_id"`
	Status      ExecutionStatus `json:"status"`

	GeneratedContent string         `json:"generated_content,omitempty"`
	StructuredOutput map[string]any `json:"structured_output,omitempty"`
	ResultData       map[string]any `json:"result_data,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`

	ConfidenceScore float64 `json:"confidence_score"`
	RelevanceScore  float64 `json:"relevance_score"`
	QualityScore    float64 `json:"quality_score"`

	ErrorMessage string    `json:"error_message,omitempty"`
	ErrorCode    ErrorCode `json:"error_code,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Succeeded reports whether the execution completed normally.
func (r *SkillResult) Succeeded() bool {
	return r.Status == StatusCompleted
}

// SkillExecution 执行器的执行记录，仅在单次执行期间存活于活跃集合中.
type SkillExecution struct {
	ID             string `json:"id"`
	SkillName      string `json:"skill_name"`
	CharacterID    int64  `json:"character_id,omitempty"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	MessageID      int64  `json:"message_id,omitempty"`

	Status   ExecutionStatus `json:"status"`
	Progress float64         `json:"progress"` // 0-1, 单次运行内单调递增

	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at,omitempty"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"` // 仅在离开 running 后设置

	Result *SkillResult `json:"result,omitempty"`
}

// PerformanceMetrics 技能性能聚合指标.
type PerformanceMetrics struct {
	SkillName   string `json:"skill_name"`
	CharacterID int64  `json:"character_id,omitempty"`

	TotalExecutions      int64 `json:"total_executions"`
	SuccessfulExecutions int64 `json:"successful_executions"`
	FailedExecutions     int64 `json:"failed_executions"`

	AverageExecutionTime time.Duration `json:"average_execution_time"`
	MinExecutionTime     time.Duration `json:"min_execution_time"`
	MaxExecutionTime     time.Duration `json:"max_execution_time"`

	AverageConfidenceScore float64 `json:"average_confidence_score"`
	AverageRelevanceScore  float64 `json:"average_relevance_score"`
	AverageQualityScore    float64 `json:"average_quality_score"`

	LastUpdated time.Time `json:"last_updated"`
}
