package skills

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/skillflow/internal/metrics"
	"github.com/BaSui01/skillflow/types"
)

// Strategy 多技能执行策略。
type Strategy string

const (
	StrategyParallel   Strategy = "parallel"
	StrategySequential Strategy = "sequential"
	StrategyAdaptive   Strategy = "adaptive"
)

// adaptiveFastBudget 自适应策略中"快技能"的耗时上限。声明并发额度
// 大于 1 且预算不超过该值的技能先并行执行，其余串行收尾。
const adaptiveFastBudget = 10 * time.Second

// Invocation 一次待执行的技能调用。
type Invocation struct {
	Skill   Skill
	Context *types.SkillContext
	Config  types.SkillConfig
}

// ExecutorStats 执行器累计统计。
type ExecutorStats struct {
	// TotalExecutions 只统计真实执行；缓存命中短路的请求计入
	// CacheHits，Prometheus 侧以 status=cached 单独计数。
	TotalExecutions      int64         `json:"total_executions"`
	Successful           int64         `json:"successful"`
	Failed               int64         `json:"failed"`
	Timeouts             int64         `json:"timeouts"`
	Cancelled            int64         `json:"cancelled"`
	CacheHits            int64         `json:"cache_hits"`
	TotalExecutionTime   time.Duration `json:"total_execution_time"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
}

// activeExecution 在途执行的登记项。cancel 取消绑定到该次执行的
// context，实现主动取消。
type activeExecution struct {
	record *types.SkillExecution
	cancel context.CancelFunc
}

// Executor 有界并发的技能执行器。
//
// 全局并发额度由信号量约束；每次执行套用技能元数据声明的超时。技能
// 的任何失败（错误返回、panic、超时、取消）都被转换为终态 SkillResult，
// Execute 系列方法从不向上传播技能错误。
type Executor struct {
	sem           *semaphore.Weighted
	maxConcurrent int64
	cache         ResultCache
	collector     *metrics.Collector
	logger        *zap.Logger

	mu     sync.Mutex
	active map[string]*activeExecution
	stats  ExecutorStats
}

// NewExecutor 构造执行器。maxConcurrent<=0 时取 5；cache 与 collector
// 均可为 nil。
func NewExecutor(maxConcurrent int64, cache ResultCache, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		sem:           semaphore.NewWeighted(maxConcurrent),
		maxConcurrent: maxConcurrent,
		cache:         cache,
		collector:     collector,
		logger:        logger.With(zap.String("component", "skill_executor")),
		active:        make(map[string]*activeExecution),
	}
}

// Execute 执行单个技能并返回终态结果。
func (e *Executor) Execute(ctx context.Context, skill Skill, sctx *types.SkillContext, cfg types.SkillConfig) *types.SkillResult {
	meta := skill.Metadata()
	executionID := uuid.NewString()
	start := time.Now()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return e.finish(meta.Name, executionID, start, failedResult(meta.Name, executionID, types.StatusCancelled,
			types.ErrCancelled, "cancelled while waiting for execution slot"))
	}
	defer e.sem.Release(1)

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	record := &types.SkillExecution{
		ID:             executionID,
		SkillName:      meta.Name,
		CharacterID:    sctx.CharacterID,
		ConversationID: sctx.ConversationID,
		MessageID:      sctx.MessageID,
		Status:         types.StatusPending,
		StartedAt:      start,
	}
	e.register(executionID, record, cancel)
	defer e.unregister(executionID)

	e.collector.ExecutionStarted()
	defer e.collector.ExecutionFinished()

	record.Status = types.StatusRunning
	record.Progress = 0.1

	if !skill.CanHandle(sctx, cfg) {
		return e.finish(meta.Name, executionID, start, failedResult(meta.Name, executionID, types.StatusFailed,
			types.ErrExecutionError, "skill cannot handle this request"))
	}
	record.Progress = 0.2

	cacheKey := ""
	if meta.CacheResults && e.cache != nil {
		cacheKey = CacheKey(meta.Name, sctx.UserInput, sctx.CharacterID, cfg.Parameters)
		if cached, err := e.cache.Get(execCtx, cacheKey); err == nil {
			e.collector.ObserveCache(true)
			e.collector.ObserveCachedExecution(meta.Name)
			e.mu.Lock()
			e.stats.CacheHits++
			e.mu.Unlock()
			e.logger.Debug("结果缓存命中", zap.String("skill", meta.Name))
			hit := *cached
			hit.ExecutionID = executionID
			hit.ExecutionTime = 0
			return &hit
		}
		e.collector.ObserveCache(false)
	}
	record.Progress = 0.3

	e.runHook(func(h Hooks) error { return h.BeforeExecute(execCtx, sctx, cfg) }, skill, "before_execute")

	result := e.run(execCtx, skill, sctx, cfg)
	record.Progress = 1.0
	record.Status = result.Status
	record.CompletedAt = time.Now()
	record.ExecutionTime = time.Since(start)
	record.Result = result

	result.ExecutionID = executionID
	result.ExecutionTime = record.ExecutionTime
	if result.CompletedAt.IsZero() {
		result.CompletedAt = record.CompletedAt
	}

	if result.Succeeded() {
		e.runHook(func(h Hooks) error { return h.AfterExecute(execCtx, sctx, cfg, result) }, skill, "after_execute")
		if cacheKey != "" {
			if err := e.cache.Set(execCtx, cacheKey, result); err != nil {
				e.logger.Debug("写入结果缓存失败", zap.String("skill", meta.Name), zap.Error(err))
			}
		}
	}

	if rec, ok := skill.(statsRecorder); ok {
		rec.RecordExecution(result.ExecutionTime, result.Succeeded())
	}
	return e.finish(meta.Name, executionID, start, result)
}

// run 在超时保护下调用技能本体，并把 panic 与错误转换为结果。
func (e *Executor) run(ctx context.Context, skill Skill, sctx *types.SkillContext, cfg types.SkillConfig) *types.SkillResult {
	meta := skill.Metadata()
	timeout := meta.MaxExecutionTime
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *types.SkillResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: types.NewError(types.ErrExecutionError,
					fmt.Sprintf("skill panicked: %v", r)).WithSkill(meta.Name)}
			}
		}()
		res, err := skill.Execute(runCtx, sctx, cfg)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if h, ok := skill.(Hooks); ok {
				h.OnError(ctx, sctx, cfg, out.err)
			}
			status := types.StatusFailed
			code := types.GetErrorCode(out.err)
			if code == "" {
				code = types.ErrExecutionError
			}
			if code == types.ErrCancelled {
				status = types.StatusCancelled
			}
			e.logger.Warn("技能执行失败",
				zap.String("skill", meta.Name),
				zap.Error(out.err))
			return failedResult(meta.Name, "", status, code, out.err.Error())
		}
		res := out.result
		if res == nil {
			return failedResult(meta.Name, "", types.StatusFailed, types.ErrExecutionError, "skill returned nil result")
		}
		if res.Status == "" || res.Status == types.StatusPending || res.Status == types.StatusRunning {
			res.Status = types.StatusCompleted
		}
		if res.CreatedAt.IsZero() {
			res.CreatedAt = time.Now()
		}
		return res
	case <-runCtx.Done():
		// 技能未响应取消时会在后台继续孤儿运行。
		if ctx.Err() != nil {
			return failedResult(meta.Name, "", types.StatusCancelled, types.ErrCancelled, "execution cancelled")
		}
		e.logger.Warn("技能执行超时",
			zap.String("skill", meta.Name),
			zap.Duration("budget", timeout))
		return failedResult(meta.Name, "", types.StatusTimeout, types.ErrTimeout,
			fmt.Sprintf("execution exceeded %s budget", timeout))
	}
}

// ExecuteMany 按策略执行一批技能。返回列表与输入同序，每个输入恰有
// 一个对应结果。
func (e *Executor) ExecuteMany(ctx context.Context, invocations []Invocation, strategy Strategy) ([]*types.SkillResult, error) {
	if len(invocations) == 0 {
		return nil, nil
	}
	switch strategy {
	case StrategyParallel:
		return e.executeParallel(ctx, invocations), nil
	case StrategySequential:
		return e.executeSequential(ctx, invocations, false), nil
	case StrategyAdaptive:
		return e.executeAdaptive(ctx, invocations), nil
	default:
		return nil, types.NewError(types.ErrUnknownStrategy, fmt.Sprintf("unknown strategy %q", strategy))
	}
}

// ExecuteSequential 顺序执行。stopOnError 为真时首个失败即停止，
// 未执行的技能不产生结果。
func (e *Executor) ExecuteSequential(ctx context.Context, invocations []Invocation, stopOnError bool) []*types.SkillResult {
	return e.executeSequential(ctx, invocations, stopOnError)
}

func (e *Executor) executeParallel(ctx context.Context, invocations []Invocation) []*types.SkillResult {
	results := make([]*types.SkillResult, len(invocations))
	g, gctx := errgroup.WithContext(ctx)
	for i, inv := range invocations {
		i, inv := i, inv
		g.Go(func() error {
			results[i] = e.Execute(gctx, inv.Skill, inv.Context, inv.Config)
			return nil // 单个失败不终止其余技能
		})
	}
	if err := g.Wait(); err != nil {
		// goroutine 不返回错误，此分支只兜底 context 取消
		e.logger.Warn("并行执行中断", zap.Error(err))
	}
	for i, r := range results {
		if r == nil {
			results[i] = failedResult(invocations[i].Skill.Metadata().Name, "",
				types.StatusFailed, types.ErrParallelExecution, "parallel execution aborted")
		}
	}
	return results
}

func (e *Executor) executeSequential(ctx context.Context, invocations []Invocation, stopOnError bool) []*types.SkillResult {
	results := make([]*types.SkillResult, 0, len(invocations))
	for _, inv := range invocations {
		res := e.Execute(ctx, inv.Skill, inv.Context, inv.Config)
		results = append(results, res)
		if stopOnError && !res.Succeeded() {
			e.logger.Info("串行执行在失败处停止",
				zap.String("skill", inv.Skill.Metadata().Name),
				zap.String("status", string(res.Status)))
			break
		}
	}
	return results
}

// executeAdaptive 把声明可并发且预算短的技能先并行，剩余串行，
// 最终结果仍按输入顺序返回。
func (e *Executor) executeAdaptive(ctx context.Context, invocations []Invocation) []*types.SkillResult {
	var fast, slow []int
	for i, inv := range invocations {
		meta := inv.Skill.Metadata()
		if meta.ConcurrentLimit > 1 && meta.MaxExecutionTime <= adaptiveFastBudget {
			fast = append(fast, i)
		} else {
			slow = append(slow, i)
		}
	}

	results := make([]*types.SkillResult, len(invocations))
	if len(fast) > 0 {
		fastInvs := make([]Invocation, len(fast))
		for j, i := range fast {
			fastInvs[j] = invocations[i]
		}
		for j, res := range e.executeParallel(ctx, fastInvs) {
			results[fast[j]] = res
		}
	}
	for _, i := range slow {
		results[i] = e.Execute(ctx, invocations[i].Skill, invocations[i].Context, invocations[i].Config)
	}
	return results
}

// CancelExecution 取消在途执行。取消是尽力而为的：不轮询 context 的
// 技能会孤儿运行到结束，但登记项立即移除、状态标记为 cancelled。
func (e *Executor) CancelExecution(executionID string) bool {
	e.mu.Lock()
	ae, ok := e.active[executionID]
	if ok {
		ae.record.Status = types.StatusCancelled
		delete(e.active, executionID)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}
	ae.cancel()
	e.logger.Info("执行已取消", zap.String("execution_id", executionID))
	return true
}

// ActiveExecutions 返回在途执行记录快照。
func (e *Executor) ActiveExecutions() []types.SkillExecution {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.SkillExecution, 0, len(e.active))
	for _, ae := range e.active {
		out = append(out, *ae.record)
	}
	return out
}

// Stats 返回累计统计快照。
func (e *Executor) Stats() ExecutorStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// MaxConcurrent 返回并发额度。
func (e *Executor) MaxConcurrent() int64 { return e.maxConcurrent }

func (e *Executor) register(id string, record *types.SkillExecution, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[id] = &activeExecution{record: record, cancel: cancel}
}

func (e *Executor) unregister(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, id)
}

// finish 统一收尾：累计统计、上报指标、回写技能自身统计。
func (e *Executor) finish(skillName, executionID string, start time.Time, result *types.SkillResult) *types.SkillResult {
	elapsed := time.Since(start)
	if result.ExecutionID == "" {
		result.ExecutionID = executionID
	}

	e.mu.Lock()
	e.stats.TotalExecutions++
	switch result.Status {
	case types.StatusCompleted:
		e.stats.Successful++
	case types.StatusTimeout:
		e.stats.Timeouts++
	case types.StatusCancelled:
		e.stats.Cancelled++
	default:
		e.stats.Failed++
	}
	e.stats.TotalExecutionTime += elapsed
	e.stats.AverageExecutionTime = e.stats.TotalExecutionTime / time.Duration(e.stats.TotalExecutions)
	e.mu.Unlock()

	e.collector.ObserveExecution(skillName, string(result.Status), elapsed)
	return result
}

func (e *Executor) runHook(fn func(Hooks) error, skill Skill, name string) {
	h, ok := skill.(Hooks)
	if !ok {
		return
	}
	if err := fn(h); err != nil {
		e.logger.Warn("生命周期钩子失败",
			zap.String("skill", skill.Metadata().Name),
			zap.String("hook", name),
			zap.Error(err))
	}
}

func failedResult(skillName, executionID string, status types.ExecutionStatus, code types.ErrorCode, msg string) *types.SkillResult {
	now := time.Now()
	return &types.SkillResult{
		SkillName:    skillName,
		ExecutionID:  executionID,
		Status:       status,
		ErrorMessage: msg,
		ErrorCode:    code,
		CreatedAt:    now,
		CompletedAt:  now,
	}
}
