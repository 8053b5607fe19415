package skills

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/skillflow/types"
)

// StreamChunk 流式技能产出的一个片段。
type StreamChunk struct {
	Content string
	Final   bool
}

// StreamingSkill 支持分片产出内容的技能。执行器本身只消费完整结果，
// CollectStream 负责把片段聚合为一个 SkillResult。
type StreamingSkill interface {
	Skill

	// ExecuteStream 返回片段通道。实现必须在 ctx 取消或产出完毕后
	// 关闭通道。
	ExecuteStream(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (<-chan StreamChunk, error)
}

// CollectStream 消费流式技能的全部片段并聚合为最终结果。
// 通道关闭前未产出任何内容时返回 NO_RESULTS 错误。
func CollectStream(ctx context.Context, skill StreamingSkill, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	ch, err := skill.ExecuteStream(ctx, sctx, cfg)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	chunks := 0
	for {
		select {
		case <-ctx.Done():
			return nil, types.NewError(types.ErrCancelled, "stream cancelled").WithSkill(skill.Metadata().Name).WithCause(ctx.Err())
		case chunk, ok := <-ch:
			if !ok {
				if chunks == 0 {
					return nil, types.NewError(types.ErrNoResults, "stream produced no content").WithSkill(skill.Metadata().Name)
				}
				return &types.SkillResult{
					SkillName:        skill.Metadata().Name,
					Status:           types.StatusCompleted,
					GeneratedContent: sb.String(),
					ResultData:       map[string]any{"chunks": chunks},
					CreatedAt:        time.Now(),
				}, nil
			}
			sb.WriteString(chunk.Content)
			chunks++
		}
	}
}
