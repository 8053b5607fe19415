package types

import "time"

// CharacterProfile 当前角色信息快照，由调用方提供.
type CharacterProfile struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Personality []string `json:"personality,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

// SkillUse 单条技能使用历史记录.
type SkillUse struct {
	SkillName string          `json:"skill_name"`
	Category  SkillCategory   `json:"category,omitempty"`
	Status    ExecutionStatus `json:"status,omitempty"`
	UsedAt    time.Time       `json:"used_at"`
}

// SkillContext 技能执行上下文 — 每个用户回合构建一次，构建后不可变，
// 意图识别结果除外（由匹配器在流水线内回写一次）.
type SkillContext struct {
	ConversationID int64  `json:"conversation_id,omitempty"`
	MessageID      int64  `json:"message_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	UserInput      string `json:"user_input"`

	Character   *CharacterProfile `json:"character,omitempty"`
	CharacterID int64             `json:"character_id,omitempty"`

	ConversationHistory []Message  `json:"conversation_history,omitempty"`
	SkillHistory        []SkillUse `json:"skill_history,omitempty"`

	ContextData map[string]any `json:"context_data,omitempty"`
	SessionData map[string]any `json:"session_data,omitempty"`

	ExecutionTimestamp time.Time `json:"execution_timestamp"`
	RequestID          string    `json:"request_id"`

	// 匹配器流水线回写的意图识别结果
	DetectedIntent   string  `json:"detected_intent,omitempty"`
	IntentConfidence float64 `json:"intent_confidence"`

	EmotionalState string `json:"emotional_state,omitempty"`
}

// CharacterName returns the character's name, or "" when absent.
func (c *SkillContext) CharacterName() string {
	if c.Character == nil {
		return ""
	}
	return c.Character.Name
}

// RecentSkills returns the last n entries from the usage history,
// oldest first.
func (c *SkillContext) RecentSkills(n int) []SkillUse {
	if n <= 0 || len(c.SkillHistory) == 0 {
		return nil
	}
	start := len(c.SkillHistory) - n
	if start < 0 {
		start = 0
	}
	return c.SkillHistory[start:]
}
