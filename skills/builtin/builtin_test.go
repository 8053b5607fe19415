package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

func skillCtx(input, character string) *types.SkillContext {
	sctx := &types.SkillContext{UserInput: input}
	if character != "" {
		sctx.Character = &types.CharacterProfile{Name: character}
	}
	return sctx
}

func TestRegisterAll(t *testing.T) {
	r := skills.NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, RegisterAll(r))

	names := r.ListNames()
	assert.Equal(t, []string{"analysis", "deep_questioning", "emotional_support", "storytelling"}, names)

	for _, name := range names {
		sk, err := r.Get(name)
		require.NoError(t, err)
		assert.Empty(t, sk.Metadata().Validate())
	}

	// 重复注册只覆盖，不报错
	require.NoError(t, RegisterAll(r))
	assert.Len(t, r.ListNames(), 4)
}

func TestCharacterSkillConfigsValid(t *testing.T) {
	configs := CharacterSkillConfigs()
	require.Len(t, configs, 3)

	for characterID, byName := range configs {
		require.NotEmpty(t, byName)
		for name, cfg := range byName {
			assert.Emptyf(t, cfg.Validate(), "character %d skill %s", characterID, name)
			assert.Equal(t, name, cfg.SkillName)
			assert.True(t, cfg.Enabled)
		}
	}

	harry := configs[CharacterHarryPotter]["storytelling"]
	assert.Equal(t, 1.5, harry.Weight)
	assert.Equal(t, 0.3, harry.Threshold)
	assert.Equal(t, types.PriorityHigh, harry.Priority)

	socrates := configs[CharacterSocrates]["deep_questioning"]
	assert.Equal(t, types.PriorityCritical, socrates.Priority)
}

func TestPresetCharacters(t *testing.T) {
	chars := PresetCharacters()
	require.Len(t, chars, 3)
	assert.Equal(t, "哈利·波特", chars[0].Name)
	assert.Equal(t, "苏格拉底", chars[1].Name)
	assert.Equal(t, "阿尔伯特·爱因斯坦", chars[2].Name)

	// 每个角色声明的技能都在内置清单里
	r := skills.NewRegistry(nil)
	require.NoError(t, RegisterAll(r))
	for _, ch := range chars {
		for _, name := range ch.Skills {
			_, ok := r.Metadata(name)
			assert.Truef(t, ok, "character %s references unknown skill %s", ch.Name, name)
		}
	}
}

func TestStorytellingCanHandle(t *testing.T) {
	sk := NewStorytellingSkill()
	cfg := types.DefaultSkillConfig("storytelling")

	assert.True(t, sk.CanHandle(skillCtx("给我讲一个故事", ""), cfg))
	assert.True(t, sk.CanHandle(skillCtx("聊聊你的学校", ""), cfg))
	assert.False(t, sk.CanHandle(skillCtx("1+1等于几", ""), cfg))
	assert.False(t, sk.CanHandle(skillCtx("   ", ""), cfg))
}

func TestStorytellingConfidence(t *testing.T) {
	sk := NewStorytellingSkill()
	cfg := types.DefaultSkillConfig("storytelling")

	plain := sk.ConfidenceScore(skillCtx("讲一个冒险故事", ""), cfg)
	harry := sk.ConfidenceScore(skillCtx("讲一个冒险故事", "哈利·波特"), cfg)
	assert.Greater(t, harry, plain)
	assert.LessOrEqual(t, harry, 1.0)

	withIntent := skillCtx("讲一个冒险故事", "哈利·波特")
	withIntent.DetectedIntent = "storytelling"
	assert.Greater(t, sk.ConfidenceScore(withIntent, cfg), harry)
}

func TestStorytellingExecutePerCharacter(t *testing.T) {
	sk := NewStorytellingSkill()
	cfg := types.DefaultSkillConfig("storytelling")

	cases := []struct {
		character string
		theme     string
		input     string
	}{
		{"哈利·波特", "adventure", "讲一个魔法冒险的故事"},
		{"苏格拉底", "wisdom", "分享一个关于智慧的故事"},
		{"阿尔伯特·爱因斯坦", "discovery", "讲一个科学发现的故事"},
		{"", "general", "讲个故事"},
	}
	for _, tc := range cases {
		res, err := sk.Execute(context.Background(), skillCtx(tc.input, tc.character), cfg)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, res.Status)
		assert.NotEmpty(t, res.GeneratedContent)
		assert.Equal(t, tc.theme, res.ResultData["story_theme"])
		assert.Greater(t, res.QualityScore, 0.0)
		assert.Greater(t, res.RelevanceScore, 0.0)
	}
}

func TestStorytellingDeterministicTemplate(t *testing.T) {
	sk := NewStorytellingSkill()
	cfg := types.DefaultSkillConfig("storytelling")
	sctx := skillCtx("讲一个魔法冒险的故事", "哈利·波特")

	first, err := sk.Execute(context.Background(), sctx, cfg)
	require.NoError(t, err)
	second, err := sk.Execute(context.Background(), sctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedContent, second.GeneratedContent)
}

func TestDeepQuestioningCanHandle(t *testing.T) {
	sk := NewDeepQuestioningSkill()
	cfg := types.DefaultSkillConfig("deep_questioning")

	assert.True(t, sk.CanHandle(skillCtx("为什么天空是蓝色的", ""), cfg))
	assert.True(t, sk.CanHandle(skillCtx("生命的意义是什么？", ""), cfg))
	assert.False(t, sk.CanHandle(skillCtx("为何", ""), cfg)) // 太短
	assert.False(t, sk.CanHandle(skillCtx("今天天气不错", ""), cfg))
}

func TestDeepQuestioningQuestionTypes(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"为什么会这样", "causal"},
		{"如何才能学好物理", "procedural"},
		{"正义是什么，它的本质呢", "definitional"},
		{"哪个选择更好", "comparative"},
		{"谈谈人生吧？嗯嗯嗯", "exploratory"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, analyzeQuestionType(tc.input), tc.input)
	}
}

func TestDeepQuestioningExecute(t *testing.T) {
	sk := NewDeepQuestioningSkill()
	cfg := types.DefaultSkillConfig("deep_questioning")

	res, err := sk.Execute(context.Background(), skillCtx("为什么人要追求真理？", "苏格拉底"), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.Equal(t, "causal", res.ResultData["question_type"])
	assert.Equal(t, "socratic", res.ResultData["character_style"])
	// 反问式回应必然带问号
	assert.Contains(t, res.GeneratedContent, "？")
}

func TestEmotionalSupportCanHandle(t *testing.T) {
	sk := NewEmotionalSupportSkill()
	cfg := types.DefaultSkillConfig("emotional_support")

	assert.True(t, sk.CanHandle(skillCtx("我今天很难过", ""), cfg))
	assert.False(t, sk.CanHandle(skillCtx("讲个笑话", ""), cfg))

	// 无关键词但上下文识别出负面情绪
	sctx := skillCtx("今天发生了一些事", "")
	sctx.EmotionalState = "sad"
	assert.True(t, sk.CanHandle(sctx, cfg))
}

func TestEmotionalSupportConfidence(t *testing.T) {
	sk := NewEmotionalSupportSkill()
	cfg := types.DefaultSkillConfig("emotional_support")

	base := sk.ConfidenceScore(skillCtx("我很难过", ""), cfg)
	assert.InDelta(t, 0.2, base, 0.001)

	sctx := skillCtx("我很难过", "哈利·波特")
	sctx.EmotionalState = "sad"
	boosted := sk.ConfidenceScore(sctx, cfg)
	assert.InDelta(t, 0.8, boosted, 0.001)
}

func TestEmotionalSupportExecute(t *testing.T) {
	sk := NewEmotionalSupportSkill()
	cfg := types.DefaultSkillConfig("emotional_support")

	res, err := sk.Execute(context.Background(), skillCtx("我最近很焦虑，担心考试", "哈利·波特"), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.NotEmpty(t, res.GeneratedContent)
	assert.GreaterOrEqual(t, res.RelevanceScore, 0.8)
}

func TestAnalysisCanHandle(t *testing.T) {
	sk := NewAnalysisSkill()
	cfg := types.DefaultSkillConfig("analysis")

	assert.True(t, sk.CanHandle(skillCtx("帮我分析一下这两种方案的优缺点", ""), cfg))
	assert.False(t, sk.CanHandle(skillCtx("你好", ""), cfg))

	// 无关键词的长疑问句要求意图配合
	sctx := skillCtx("这件事情到底应该怎样看待呢？", "")
	assert.False(t, sk.CanHandle(sctx, cfg))
	sctx.DetectedIntent = "analysis"
	assert.True(t, sk.CanHandle(sctx, cfg))
}

func TestAnalysisExecute(t *testing.T) {
	sk := NewAnalysisSkill()
	cfg := types.DefaultSkillConfig("analysis")

	res, err := sk.Execute(context.Background(), skillCtx("请分析一下坚持与固执的区别", "阿尔伯特·爱因斯坦"), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.NotEmpty(t, res.GeneratedContent)
	assert.Greater(t, res.ConfidenceScore, 0.0)
}

func TestBuiltinMetadataCompatibility(t *testing.T) {
	// 深度提问与分析不面向哈利，故事与情感支持面向全部预置角色
	assert.False(t, DeepQuestioningMetadata().CompatibleWith("哈利·波特"))
	assert.True(t, DeepQuestioningMetadata().CompatibleWith("苏格拉底"))
	assert.False(t, AnalysisMetadata().CompatibleWith("哈利·波特"))
	assert.True(t, StorytellingMetadata().CompatibleWith("哈利·波特"))
}
