package types

import "time"

// SkillUsageRecord 一次技能使用的画像记录，供推荐引擎累积与持久化。
type SkillUsageRecord struct {
	UserID      string `json:"user_id"`
	SkillName   string `json:"skill_name"`
	CharacterID int64  `json:"character_id,omitempty"`

	Intent      string `json:"intent,omitempty"`
	ContextType string `json:"context_type,omitempty"`

	Success       bool          `json:"success"`
	ExecutionTime time.Duration `json:"execution_time"`

	QualityScore     float64 `json:"quality_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	UserSatisfaction float64 `json:"user_satisfaction"`

	Timestamp time.Time `json:"timestamp"`
}
