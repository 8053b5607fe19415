package skills

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/skillflow/types"
)

// testSkill 测试用技能桩，行为完全由字段控制。
type testSkill struct {
	*BaseSkill

	canHandle  bool
	confidence float64
	execute    func(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error)
}

func newTestSkill(name string, opts ...func(*types.SkillMetadata)) *testSkill {
	meta := &types.SkillMetadata{
		Name:             name,
		DisplayName:      name,
		Description:      "test skill " + name,
		Category:         types.CategoryConversation,
		Version:          "1.0.0",
		Priority:         types.PriorityMedium,
		MaxExecutionTime: 5 * time.Second,
		ConcurrentLimit:  1,
		Enabled:          true,
	}
	for _, opt := range opts {
		opt(meta)
	}
	return &testSkill{
		BaseSkill:  NewBaseSkill(meta),
		canHandle:  true,
		confidence: 0.8,
	}
}

func (s *testSkill) CanHandle(_ *types.SkillContext, _ types.SkillConfig) bool { return s.canHandle }

func (s *testSkill) ConfidenceScore(_ *types.SkillContext, _ types.SkillConfig) float64 {
	return s.confidence
}

func (s *testSkill) Execute(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	if s.execute != nil {
		return s.execute(ctx, sctx, cfg)
	}
	return &types.SkillResult{
		SkillName:        s.Metadata().Name,
		GeneratedContent: fmt.Sprintf("%s handled %q", s.Metadata().Name, sctx.UserInput),
	}, nil
}

var _ Skill = (*testSkill)(nil)
