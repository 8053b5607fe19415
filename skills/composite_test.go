package skills

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/skillflow/types"
)

func newCompositeMeta(name string) *types.SkillMetadata {
	m := newTestSkill(name).Metadata()
	return m
}

func TestCompositeSkillExecute(t *testing.T) {
	a := newTestSkill("step_a")
	b := newTestSkill("step_b")
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{a, b}, nil)

	sctx := &types.SkillContext{UserInput: "组合执行"}
	cfg := types.SkillConfig{Enabled: true}

	require.True(t, comp.CanHandle(sctx, cfg))

	res, err := comp.Execute(context.Background(), sctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", res.SkillName)
	assert.Equal(t, types.StatusCompleted, res.Status)
	// 默认聚合：成功子结果按顺序换行拼接
	parts := strings.Split(res.GeneratedContent, "\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "step_a")
	assert.Contains(t, parts[1], "step_b")
	assert.Equal(t, 2, res.ResultData["sub_skills"])
	assert.Equal(t, 0, res.ResultData["failed"])
}

func TestCompositeSkillCustomCompose(t *testing.T) {
	a := newTestSkill("step_a")
	b := newTestSkill("step_b")
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{a, b},
		func(results []*types.SkillResult) string {
			return results[len(results)-1].GeneratedContent
		})

	res, err := comp.Execute(context.Background(), &types.SkillContext{UserInput: "x"}, types.SkillConfig{})
	require.NoError(t, err)
	assert.Contains(t, res.GeneratedContent, "step_b")
	assert.NotContains(t, res.GeneratedContent, "step_a handled")
}

func TestCompositeSkillContinuesPastSubSkillError(t *testing.T) {
	boom := newTestSkill("step_boom")
	boom.execute = func(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
		return nil, errors.New("下游挂了")
	}
	ok := newTestSkill("step_ok")
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{boom, ok}, nil)

	// 首个子技能失败不中断整体：失败转为失败子结果，后续照常执行
	res, err := comp.Execute(context.Background(), &types.SkillContext{UserInput: "x"}, types.SkillConfig{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.Contains(t, res.GeneratedContent, "step_ok")
	assert.NotContains(t, res.GeneratedContent, "下游挂了")
	assert.Equal(t, 2, res.ResultData["sub_skills"])
	assert.Equal(t, 1, res.ResultData["failed"])
}

func TestCompositeSkillFailedSubResultVisibleToCompose(t *testing.T) {
	boom := newTestSkill("step_boom")
	boom.execute = func(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
		return nil, errors.New("下游挂了")
	}
	var seen []*types.SkillResult
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{boom},
		func(results []*types.SkillResult) string {
			seen = results
			return ""
		})

	_, err := comp.Execute(context.Background(), &types.SkillContext{UserInput: "x"}, types.SkillConfig{})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, types.StatusFailed, seen[0].Status)
	assert.Equal(t, types.ErrSubSkillError, seen[0].ErrorCode)
	assert.Equal(t, "step_boom", seen[0].SkillName)
	assert.Contains(t, seen[0].ErrorMessage, "下游挂了")
	assert.NotEmpty(t, seen[0].ExecutionID)
}

func TestCompositeSkillSkipsNonHandlingSubs(t *testing.T) {
	yes := newTestSkill("yes")
	no := newTestSkill("no")
	no.canHandle = false
	ran := false
	no.execute = func(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
		ran = true
		return nil, nil
	}
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{yes, no}, nil)

	sctx := &types.SkillContext{UserInput: "x"}
	cfg := types.SkillConfig{}
	// 任一子技能能处理即可
	assert.True(t, comp.CanHandle(sctx, cfg))

	res, err := comp.Execute(context.Background(), sctx, cfg)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, res.ResultData["sub_skills"])
}

func TestCompositeSkillConfidenceAndCanHandle(t *testing.T) {
	hi := newTestSkill("hi")
	hi.confidence = 0.9
	lo := newTestSkill("lo")
	lo.confidence = 0.4
	comp := NewCompositeSkill(newCompositeMeta("pipeline"), []Skill{hi, lo}, nil)

	sctx := &types.SkillContext{UserInput: "x"}
	cfg := types.SkillConfig{}
	// 取能处理请求的子技能的最大置信度
	assert.InDelta(t, 0.9, comp.ConfidenceScore(sctx, cfg), 1e-9)

	// 不能处理的子技能不参与打分
	hi.canHandle = false
	assert.InDelta(t, 0.4, comp.ConfidenceScore(sctx, cfg), 1e-9)
	assert.True(t, comp.CanHandle(sctx, cfg))

	lo.canHandle = false
	assert.False(t, comp.CanHandle(sctx, cfg))
	assert.Zero(t, comp.ConfidenceScore(sctx, cfg))

	empty := NewCompositeSkill(newCompositeMeta("empty"), nil, nil)
	assert.False(t, empty.CanHandle(sctx, cfg))
	assert.Zero(t, empty.ConfidenceScore(sctx, cfg))
}
