package skills

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/skillflow/types"
)

// CompositeSkill 把多个子技能组合成一个逻辑技能。只执行能处理当前
// 请求的子技能；子技能失败不会中断整体，失败会转换成一条
// SUB_SKILL_ERROR 子结果并继续执行剩余子技能。
//
// 子技能结果默认按顺序拼接成功内容；需要别的聚合方式时传入 compose。
type CompositeSkill struct {
	*BaseSkill

	subs    []Skill
	compose func(results []*types.SkillResult) string
}

// NewCompositeSkill 构造组合技能。compose 为 nil 时使用换行拼接。
func NewCompositeSkill(meta *types.SkillMetadata, subs []Skill, compose func([]*types.SkillResult) string) *CompositeSkill {
	return &CompositeSkill{BaseSkill: NewBaseSkill(meta), subs: subs, compose: compose}
}

// CanHandle 至少有一个子技能能处理请求即可。
func (c *CompositeSkill) CanHandle(sctx *types.SkillContext, cfg types.SkillConfig) bool {
	for _, s := range c.subs {
		if s.CanHandle(sctx, cfg) {
			return true
		}
	}
	return false
}

// ConfidenceScore 取能处理请求的子技能置信度的最大值。
func (c *CompositeSkill) ConfidenceScore(sctx *types.SkillContext, cfg types.SkillConfig) float64 {
	max := 0.0
	for _, s := range c.subs {
		if !s.CanHandle(sctx, cfg) {
			continue
		}
		if v := s.ConfidenceScore(sctx, cfg); v > max {
			max = v
		}
	}
	return max
}

// Execute 执行能处理请求的子技能并聚合结果。单个子技能失败被记录为
// 一条失败子结果，不影响剩余子技能。
func (c *CompositeSkill) Execute(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	results := make([]*types.SkillResult, 0, len(c.subs))
	failed := 0
	for _, s := range c.subs {
		if !s.CanHandle(sctx, cfg) {
			continue
		}
		res, err := s.Execute(ctx, sctx, cfg)
		if err != nil {
			failed++
			results = append(results, &types.SkillResult{
				SkillName:    s.Metadata().Name,
				ExecutionID:  uuid.NewString(),
				Status:       types.StatusFailed,
				ErrorMessage: err.Error(),
				ErrorCode:    types.ErrSubSkillError,
				CreatedAt:    time.Now(),
			})
			continue
		}
		if res != nil {
			if !res.Succeeded() {
				failed++
			}
			results = append(results, res)
		}
	}

	content := ""
	if c.compose != nil {
		content = c.compose(results)
	} else {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			if r.Succeeded() && r.GeneratedContent != "" {
				parts = append(parts, r.GeneratedContent)
			}
		}
		content = strings.Join(parts, "\n")
	}

	return &types.SkillResult{
		SkillName:        c.Metadata().Name,
		Status:           types.StatusCompleted,
		GeneratedContent: content,
		ResultData:       map[string]any{"sub_skills": len(results), "failed": failed},
		CreatedAt:        time.Now(),
	}, nil
}
