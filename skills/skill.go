package skills

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/skillflow/types"
)

// Skill 所有技能必须实现的接口。
//
// 实现必须是并发安全的：执行器可能同时对同一个技能实例发起多次
// Execute。Execute 收到的 ctx 已绑定元数据声明的超时，实现应当在
// 阻塞点检查取消。
type Skill interface {
	// Metadata 返回技能的静态描述，注册后不应再修改。
	Metadata() *types.SkillMetadata

	// CanHandle 快速判断技能是否适用于当前请求，用于候选过滤。
	CanHandle(sctx *types.SkillContext, cfg types.SkillConfig) bool

	// ConfidenceScore 返回 [0,1] 置信度，供匹配器加权排序。
	ConfidenceScore(sctx *types.SkillContext, cfg types.SkillConfig) float64

	// Execute 执行技能并返回结果。返回 error 时由执行器统一转换为
	// 失败态的 SkillResult。
	Execute(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error)
}

// Hooks 可选的生命周期钩子。技能实现该接口即可在执行前后收到回调；
// 钩子返回的错误只记录日志，不影响执行结果。
type Hooks interface {
	BeforeExecute(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig) error
	AfterExecute(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig, result *types.SkillResult) error
	OnError(ctx context.Context, sctx *types.SkillContext, cfg types.SkillConfig, err error)
}

// SkillStats 单个技能的累计执行统计。
type SkillStats struct {
	TotalExecutions      int64         `json:"total_executions"`
	SuccessfulExecutions int64         `json:"successful_executions"`
	FailedExecutions     int64         `json:"failed_executions"`
	TotalExecutionTime   time.Duration `json:"total_execution_time"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
	SuccessRate          float64       `json:"success_rate"`
	LastExecutedAt       time.Time     `json:"last_executed_at,omitempty"`
}

// BaseSkill 提供技能实现的公共骨架：元数据持有与执行统计。
// 具体技能内嵌它并实现 CanHandle / ConfidenceScore / Execute。
type BaseSkill struct {
	meta *types.SkillMetadata

	mu    sync.Mutex
	stats SkillStats
}

// NewBaseSkill 以给定元数据构造基类。meta 为 nil 时 panic，这属于
// 编程错误而非运行时条件。
func NewBaseSkill(meta *types.SkillMetadata) *BaseSkill {
	if meta == nil {
		panic("skills: nil metadata")
	}
	return &BaseSkill{meta: meta}
}

// Metadata 实现 Skill 接口的元数据部分。
func (b *BaseSkill) Metadata() *types.SkillMetadata { return b.meta }

// RecordExecution 记录一次执行的耗时与结果，执行器在每次执行结束后调用。
func (b *BaseSkill) RecordExecution(d time.Duration, succeeded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TotalExecutions++
	if succeeded {
		b.stats.SuccessfulExecutions++
	} else {
		b.stats.FailedExecutions++
	}
	b.stats.TotalExecutionTime += d
	b.stats.AverageExecutionTime = b.stats.TotalExecutionTime / time.Duration(b.stats.TotalExecutions)
	b.stats.SuccessRate = float64(b.stats.SuccessfulExecutions) / float64(b.stats.TotalExecutions)
	b.stats.LastExecutedAt = time.Now()
}

// Statistics 返回统计快照。
func (b *BaseSkill) Statistics() SkillStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// ResetStatistics 清零统计。
func (b *BaseSkill) ResetStatistics() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = SkillStats{}
}

// statsRecorder 执行器借此把耗时写回技能自身统计。BaseSkill 满足它，
// 不内嵌 BaseSkill 的自定义实现可以选择不满足。
type statsRecorder interface {
	RecordExecution(d time.Duration, succeeded bool)
}
