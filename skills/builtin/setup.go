package builtin

import (
	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// 预置角色 ID。
const (
	CharacterHarryPotter int64 = 1
	CharacterSocrates    int64 = 2
	CharacterEinstein    int64 = 3
)

// RegisterAll 按显式清单注册全部内置技能。
func RegisterAll(registry *skills.Registry) error {
	manifest := []struct {
		meta    *types.SkillMetadata
		factory skills.Factory
	}{
		// 对话类技能
		{DeepQuestioningMetadata(), func() (skills.Skill, error) { return NewDeepQuestioningSkill(), nil }},
		{StorytellingMetadata(), func() (skills.Skill, error) { return NewStorytellingSkill(), nil }},
		{EmotionalSupportMetadata(), func() (skills.Skill, error) { return NewEmotionalSupportSkill(), nil }},

		// 知识类技能
		{AnalysisMetadata(), func() (skills.Skill, error) { return NewAnalysisSkill(), nil }},
	}

	for _, entry := range manifest {
		if err := registry.Register(entry.meta, entry.factory); err != nil {
			return err
		}
	}
	return nil
}

// CharacterSkillConfigs 返回三个预置角色的技能配置，
// 供 Manager.LoadCharacterSkillConfigs 批量加载。
func CharacterSkillConfigs() map[int64]map[string]types.SkillConfig {
	return map[int64]map[string]types.SkillConfig{
		CharacterHarryPotter: {
			"storytelling": {
				SkillName:   "storytelling",
				CharacterID: CharacterHarryPotter,
				Weight:      1.5,
				Threshold:   0.3,
				Priority:    types.PriorityHigh,
				Parameters:  map[string]any{"story_style": "magical_adventure", "tone": "inspiring"},
				Personalization: map[string]any{
					"magical_elements":  true,
					"friendship_themes": true,
				},
				Enabled: true,
			},
			"emotional_support": {
				SkillName:       "emotional_support",
				CharacterID:     CharacterHarryPotter,
				Weight:          1.2,
				Threshold:       0.4,
				Priority:        types.PriorityMedium,
				Parameters:      map[string]any{"support_style": "brave_encouragement"},
				Personalization: map[string]any{"reference_personal_struggles": true},
				Enabled:         true,
			},
			"deep_questioning": {
				SkillName:   "deep_questioning",
				CharacterID: CharacterHarryPotter,
				Weight:      0.8,
				Threshold:   0.6,
				Priority:    types.PriorityMedium,
				Enabled:     true,
			},
		},

		CharacterSocrates: {
			"deep_questioning": {
				SkillName:   "deep_questioning",
				CharacterID: CharacterSocrates,
				Weight:      1.5,
				Threshold:   0.2,
				Priority:    types.PriorityCritical,
				Parameters:  map[string]any{"questioning_style": "socratic_method"},
				Personalization: map[string]any{
					"philosophical_depth": "high",
					"use_analogies":       true,
				},
				Enabled: true,
			},
			"analysis": {
				SkillName:       "analysis",
				CharacterID:     CharacterSocrates,
				Weight:          1.4,
				Threshold:       0.3,
				Priority:        types.PriorityHigh,
				Parameters:      map[string]any{"analysis_style": "philosophical"},
				Personalization: map[string]any{"encourage_self_reflection": true},
				Enabled:         true,
			},
			"storytelling": {
				SkillName:   "storytelling",
				CharacterID: CharacterSocrates,
				Weight:      1.0,
				Threshold:   0.5,
				Priority:    types.PriorityMedium,
				Parameters:  map[string]any{"story_style": "philosophical_parable"},
				Enabled:     true,
			},
		},

		CharacterEinstein: {
			"analysis": {
				SkillName:   "analysis",
				CharacterID: CharacterEinstein,
				Weight:      1.5,
				Threshold:   0.3,
				Priority:    types.PriorityHigh,
				Parameters:  map[string]any{"analysis_style": "scientific_method"},
				Personalization: map[string]any{
					"use_thought_experiments": true,
					"emphasize_curiosity":     true,
				},
				Enabled: true,
			},
			"storytelling": {
				SkillName:   "storytelling",
				CharacterID: CharacterEinstein,
				Weight:      1.2,
				Threshold:   0.4,
				Priority:    types.PriorityMedium,
				Parameters:  map[string]any{"story_style": "scientific_discovery"},
				Enabled:     true,
			},
			"deep_questioning": {
				SkillName:   "deep_questioning",
				CharacterID: CharacterEinstein,
				Weight:      1.1,
				Threshold:   0.4,
				Priority:    types.PriorityMedium,
				Parameters:  map[string]any{"questioning_style": "scientific_inquiry"},
				Enabled:     true,
			},
		},
	}
}

// PresetCharacters 返回三个预置角色的档案快照。
func PresetCharacters() []*types.CharacterProfile {
	return []*types.CharacterProfile{
		{
			ID:          CharacterHarryPotter,
			Name:        "哈利·波特",
			Title:       "霍格沃茨的巫师",
			Personality: []string{"勇敢", "忠诚", "重情义"},
			Skills:      []string{"storytelling", "emotional_support", "deep_questioning"},
		},
		{
			ID:          CharacterSocrates,
			Name:        "苏格拉底",
			Title:       "雅典的哲学家",
			Personality: []string{"睿智", "好问", "谦逊"},
			Skills:      []string{"deep_questioning", "analysis", "storytelling"},
		},
		{
			ID:          CharacterEinstein,
			Name:        "阿尔伯特·爱因斯坦",
			Title:       "理论物理学家",
			Personality: []string{"好奇", "想象力丰富", "坚持"},
			Skills:      []string{"analysis", "storytelling", "deep_questioning"},
		},
	}
}
