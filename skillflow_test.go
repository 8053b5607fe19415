package skillflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/skillflow/config"
	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/skills/builtin"
	"github.com/BaSui01/skillflow/types"
)

func newTestEngine(t *testing.T, mutate ...func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.RedisEnabled = false
	cfg.Database.Driver = "memory"
	for _, m := range mutate {
		m(cfg)
	}
	eng, err := New(
		WithConfig(cfg),
		WithLogger(zaptest.NewLogger(t)),
		WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func harryProfile() *types.CharacterProfile {
	for _, p := range builtin.PresetCharacters() {
		if p.ID == builtin.CharacterHarryPotter {
			return p
		}
	}
	return nil
}

func TestEngineProcessInput(t *testing.T) {
	eng := newTestEngine(t)

	results, err := eng.ProcessInput(context.Background(), "给我讲一个魔法冒险的故事",
		builtin.CharacterHarryPotter, harryProfile(), skills.ProcessOptions{
			ConversationID: 1001,
			SessionID:      "sess-1",
		})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	first := results[0]
	assert.Equal(t, types.StatusCompleted, first.Status)
	assert.NotEmpty(t, first.GeneratedContent)
	assert.NotEmpty(t, first.ExecutionID)

	status := eng.Status()
	assert.Equal(t, int64(1), status.Manager.TotalRequests)
	assert.GreaterOrEqual(t, status.CharactersLoaded, 3)
}

func TestEngineEmptyInput(t *testing.T) {
	eng := newTestEngine(t)

	results, err := eng.ProcessInput(context.Background(), "   ",
		builtin.CharacterHarryPotter, harryProfile(), skills.ProcessOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineSuggestions(t *testing.T) {
	eng := newTestEngine(t)

	sugs := eng.Suggestions("为什么天空是蓝色的？", builtin.CharacterEinstein, nil, 3)
	require.NotEmpty(t, sugs)
	assert.LessOrEqual(t, len(sugs), 3)
}

func TestEngineRecommendAfterUsage(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := eng.ProcessInput(ctx, "给我讲一个魔法冒险的故事",
			builtin.CharacterHarryPotter, harryProfile(), skills.ProcessOptions{
				ConversationID: 2001,
				SessionID:      "sess-rec",
			})
		require.NoError(t, err)
	}

	// 使用记录经由观察者异步汇入推荐引擎。
	require.Eventually(t, func() bool {
		recs := eng.Recommend(&types.SkillContext{
			SessionID:   "sess-rec",
			CharacterID: builtin.CharacterHarryPotter,
			UserInput:   "再来一个",
		}, 3)
		for _, r := range recs {
			if r.SkillName == "storytelling" && r.Score > 0 {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEnginePersistsExecutions(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.ProcessInput(ctx, "给我讲一个魔法冒险的故事",
		builtin.CharacterHarryPotter, harryProfile(), skills.ProcessOptions{ConversationID: 3001})
	require.NoError(t, err)

	// 执行记录异步落库。
	require.Eventually(t, func() bool {
		rows, err := eng.Store().RecentExecutions(ctx, "", 0)
		return err == nil && len(rows) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEngineWithCustomSkill(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "memory"

	meta := &types.SkillMetadata{
		Name:             "echo",
		DisplayName:      "回声",
		Description:      "原样返回输入",
		Version:          "1.0.0",
		Category:         types.CategoryUtility,
		MaxExecutionTime: time.Second,
		ConcurrentLimit:  1,
		Enabled:          true,
	}

	eng, err := New(
		WithConfig(cfg),
		WithLogger(zaptest.NewLogger(t)),
		WithRegisterer(prometheus.NewRegistry()),
		WithSkill(meta, func() (skills.Skill, error) {
			return nil, assert.AnError
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	names := eng.Registry().ListNames()
	assert.Contains(t, names, "echo")
}

func TestEngineStartsWithSkewedRecommendationWeights(t *testing.T) {
	// 权重总和偏离 1.0 不阻止引擎启动，只在装配时记日志
	eng := newTestEngine(t, func(cfg *config.Config) {
		cfg.Recommendation.NoveltyWeight = 0.9
	})
	assert.NotNil(t, eng.Recommender())
}

func TestEngineInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Executor.DefaultStrategy = "round_robin"

	_, err := New(WithConfig(cfg), WithLogger(zaptest.NewLogger(t)))
	require.Error(t, err)
}

func TestEngineCancelUnknownExecution(t *testing.T) {
	eng := newTestEngine(t)
	assert.False(t, eng.CancelExecution("no-such-execution"))
}

func presetCharacter(id int64) *types.CharacterProfile {
	for _, p := range builtin.PresetCharacters() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func TestEngineSkyQuestionScenario(t *testing.T) {
	eng := newTestEngine(t)
	socrates := presetCharacter(builtin.CharacterSocrates)

	sctx := &types.SkillContext{
		UserInput:   "为什么天空是蓝色的？",
		CharacterID: builtin.CharacterSocrates,
		Character:   socrates,
	}
	classification := eng.Classifier().Classify(sctx)
	assert.Equal(t, "deep_conversation", classification.DetectedIntent)
	assert.Greater(t, classification.Confidence, 0.0)

	results, err := eng.ProcessInput(context.Background(), "为什么天空是蓝色的？",
		builtin.CharacterSocrates, socrates, skills.ProcessOptions{})
	require.NoError(t, err)
	// 恰好一个完成结果：回应内容非空且包含问号
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.Equal(t, "deep_questioning", res.SkillName)
	require.NotEmpty(t, res.GeneratedContent)
	assert.True(t, strings.ContainsAny(res.GeneratedContent, "？?"))
}

func TestEngineStoryShortlistScenario(t *testing.T) {
	eng := newTestEngine(t)
	harry := harryProfile()

	matches, err := eng.matcher.Match(context.Background(), &types.SkillContext{
		UserInput:   "讲个故事",
		CharacterID: builtin.CharacterHarryPotter,
		Character:   harry,
	}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	// storytelling 排在 analysis / emotional_support 之前
	pos := map[string]int{}
	for i, m := range matches {
		pos[m.Skill.Metadata().Name] = i
	}
	storyPos, ok := pos["storytelling"]
	require.True(t, ok)
	assert.Zero(t, storyPos)
	if p, ok := pos["analysis"]; ok {
		assert.Less(t, storyPos, p)
	}
	if p, ok := pos["emotional_support"]; ok {
		assert.Less(t, storyPos, p)
	}
}
