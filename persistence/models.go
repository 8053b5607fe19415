package persistence

import (
	"time"

	"github.com/BaSui01/skillflow/types"
)

// ExecutionRecord 技能执行记录表。
type ExecutionRecord struct {
	ID uint `gorm:"primaryKey"`

	ExecutionID    string `gorm:"size:64;uniqueIndex"`
	SkillName      string `gorm:"size:128;index"`
	CharacterID    int64  `gorm:"index"`
	ConversationID int64  `gorm:"index"`
	MessageID      int64

	Status        string `gorm:"size:16"`
	Content       string `gorm:"type:text"`
	ErrorMessage  string `gorm:"type:text"`
	ExecutionTime int64  // 纳秒

	QualityScore   float64
	RelevanceScore float64

	StartedAt   time.Time `gorm:"index"`
	CompletedAt time.Time
	CreatedAt   time.Time
}

// TableName 指定表名。
func (ExecutionRecord) TableName() string { return "skill_executions" }

// UsageRecord 技能使用记录表，喂给推荐引擎做离线分析。
type UsageRecord struct {
	ID uint `gorm:"primaryKey"`

	UserID      string `gorm:"size:128;index"`
	SkillName   string `gorm:"size:128;index"`
	CharacterID int64  `gorm:"index"`

	Intent      string `gorm:"size:64"`
	ContextType string `gorm:"size:128"`

	Success       bool
	ExecutionTime int64 // 纳秒

	QualityScore     float64
	RelevanceScore   float64
	UserSatisfaction float64

	Timestamp time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName 指定表名。
func (UsageRecord) TableName() string { return "skill_usage" }

func newExecutionRecord(exec *types.SkillExecution) *ExecutionRecord {
	rec := &ExecutionRecord{
		ExecutionID:    exec.ID,
		SkillName:      exec.SkillName,
		CharacterID:    exec.CharacterID,
		ConversationID: exec.ConversationID,
		MessageID:      exec.MessageID,
		Status:         string(exec.Status),
		ExecutionTime:  int64(exec.ExecutionTime),
		StartedAt:      exec.StartedAt,
		CompletedAt:    exec.CompletedAt,
	}
	if exec.Result != nil {
		rec.Content = exec.Result.GeneratedContent
		rec.ErrorMessage = exec.Result.ErrorMessage
		rec.QualityScore = exec.Result.QualityScore
		rec.RelevanceScore = exec.Result.RelevanceScore
	}
	return rec
}

func (r *ExecutionRecord) toExecution() types.SkillExecution {
	exec := types.SkillExecution{
		ID:             r.ExecutionID,
		SkillName:      r.SkillName,
		CharacterID:    r.CharacterID,
		ConversationID: r.ConversationID,
		MessageID:      r.MessageID,
		Status:         types.ExecutionStatus(r.Status),
		ExecutionTime:  time.Duration(r.ExecutionTime),
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
	if r.Content != "" || r.ErrorMessage != "" {
		exec.Result = &types.SkillResult{
			ExecutionID:      r.ExecutionID,
			SkillName:        r.SkillName,
			Status:           types.ExecutionStatus(r.Status),
			GeneratedContent: r.Content,
			ErrorMessage:     r.ErrorMessage,
			QualityScore:     r.QualityScore,
			RelevanceScore:   r.RelevanceScore,
			ExecutionTime:    time.Duration(r.ExecutionTime),
		}
	}
	return exec
}

func newUsageRecord(rec *types.SkillUsageRecord) *UsageRecord {
	return &UsageRecord{
		UserID:           rec.UserID,
		SkillName:        rec.SkillName,
		CharacterID:      rec.CharacterID,
		Intent:           rec.Intent,
		ContextType:      rec.ContextType,
		Success:          rec.Success,
		ExecutionTime:    int64(rec.ExecutionTime),
		QualityScore:     rec.QualityScore,
		RelevanceScore:   rec.RelevanceScore,
		UserSatisfaction: rec.UserSatisfaction,
		Timestamp:        rec.Timestamp,
	}
}

func (r *UsageRecord) toUsage() types.SkillUsageRecord {
	return types.SkillUsageRecord{
		UserID:           r.UserID,
		SkillName:        r.SkillName,
		CharacterID:      r.CharacterID,
		Intent:           r.Intent,
		ContextType:      r.ContextType,
		Success:          r.Success,
		ExecutionTime:    time.Duration(r.ExecutionTime),
		QualityScore:     r.QualityScore,
		RelevanceScore:   r.RelevanceScore,
		UserSatisfaction: r.UserSatisfaction,
		Timestamp:        r.Timestamp,
	}
}
