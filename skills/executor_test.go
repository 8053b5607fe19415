package skills

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/skillflow/internal/metrics"
	"github.com/BaSui01/skillflow/types"
)

func testContext(input string) *types.SkillContext {
	return &types.SkillContext{
		ConversationID: 1,
		MessageID:      1,
		UserInput:      input,
		CharacterID:    42,
	}
}

func TestExecutorExecuteSuccess(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("greet")

	res := e.Execute(context.Background(), sk, testContext("你好"), types.DefaultSkillConfig("greet"))
	require.NotNil(t, res)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.True(t, res.Succeeded())
	assert.NotEmpty(t, res.ExecutionID)
	assert.NotEmpty(t, res.GeneratedContent)
	assert.False(t, res.CompletedAt.IsZero())

	stats := e.Stats()
	assert.EqualValues(t, 1, stats.TotalExecutions)
	assert.EqualValues(t, 1, stats.Successful)

	// 执行统计写回技能自身
	assert.EqualValues(t, 1, sk.Statistics().TotalExecutions)
}

func TestExecutorCannotHandle(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("picky")
	sk.canHandle = false

	res := e.Execute(context.Background(), sk, testContext("hi"), types.DefaultSkillConfig("picky"))
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, types.ErrExecutionError, res.ErrorCode)
}

func TestExecutorSkillError(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("broken")
	sk.execute = func(context.Context, *types.SkillContext, types.SkillConfig) (*types.SkillResult, error) {
		return nil, errors.New("backend unavailable")
	}

	res := e.Execute(context.Background(), sk, testContext("hi"), types.DefaultSkillConfig("broken"))
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, types.ErrExecutionError, res.ErrorCode)
	assert.Contains(t, res.ErrorMessage, "backend unavailable")
}

func TestExecutorPanicRecovery(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("panicky")
	sk.execute = func(context.Context, *types.SkillContext, types.SkillConfig) (*types.SkillResult, error) {
		panic("unexpected state")
	}

	res := e.Execute(context.Background(), sk, testContext("hi"), types.DefaultSkillConfig("panicky"))
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "skill panicked")
}

func TestExecutorTimeout(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("slow", func(m *types.SkillMetadata) {
		m.MaxExecutionTime = 30 * time.Millisecond
	})
	sk.execute = func(ctx context.Context, _ *types.SkillContext, _ types.SkillConfig) (*types.SkillResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return &types.SkillResult{SkillName: "slow"}, nil
		}
	}

	res := e.Execute(context.Background(), sk, testContext("hi"), types.DefaultSkillConfig("slow"))
	assert.Equal(t, types.StatusTimeout, res.Status)
	assert.Equal(t, types.ErrTimeout, res.ErrorCode)
	assert.EqualValues(t, 1, e.Stats().Timeouts)
}

func TestExecutorParentCancel(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("patient")
	started := make(chan struct{})
	sk.execute = func(ctx context.Context, _ *types.SkillContext, _ types.SkillConfig) (*types.SkillResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	res := e.Execute(ctx, sk, testContext("hi"), types.DefaultSkillConfig("patient"))
	assert.Equal(t, types.StatusCancelled, res.Status)
	assert.Equal(t, types.ErrCancelled, res.ErrorCode)
}

func TestExecutorCacheHit(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	e := NewExecutor(2, cache, nil, zaptest.NewLogger(t))
	sk := newTestSkill("cached", func(m *types.SkillMetadata) {
		m.CacheResults = true
	})

	calls := int32(0)
	sk.execute = func(_ context.Context, sctx *types.SkillContext, _ types.SkillConfig) (*types.SkillResult, error) {
		atomic.AddInt32(&calls, 1)
		return &types.SkillResult{SkillName: "cached", GeneratedContent: "computed"}, nil
	}

	sctx := testContext("同样的问题")
	cfg := types.DefaultSkillConfig("cached")

	first := e.Execute(context.Background(), sk, sctx, cfg)
	require.True(t, first.Succeeded())

	second := e.Execute(context.Background(), sk, sctx, cfg)
	require.True(t, second.Succeeded())
	assert.Equal(t, "computed", second.GeneratedContent)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// 缓存命中返回副本：新执行 ID、耗时归零
	assert.NotEqual(t, first.ExecutionID, second.ExecutionID)
	assert.Zero(t, second.ExecutionTime)
	assert.EqualValues(t, 1, e.Stats().CacheHits)
	// TotalExecutions 只计真实执行
	assert.EqualValues(t, 1, e.Stats().TotalExecutions)
}

func TestExecutorCacheHitCountedInMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	cache := NewLRUCache(16, time.Minute)
	e := NewExecutor(2, cache, collector, zaptest.NewLogger(t))
	sk := newTestSkill("cached", func(m *types.SkillMetadata) {
		m.CacheResults = true
	})

	sctx := testContext("同样的问题")
	cfg := types.DefaultSkillConfig("cached")

	require.True(t, e.Execute(context.Background(), sk, sctx, cfg).Succeeded())
	require.True(t, e.Execute(context.Background(), sk, sctx, cfg).Succeeded())

	// 缓存命中以 cached 状态计入执行总数
	families, err := reg.Gather()
	require.NoError(t, err)
	cachedCount := 0.0
	for _, f := range families {
		if f.GetName() != "skillflow_skill_executions_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == "cached" {
					cachedCount = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.InDelta(t, 1, cachedCount, 1e-9)
}

func TestExecutorConcurrencyBound(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))

	var inFlight, peak int32
	mk := func(name string) *testSkill {
		sk := newTestSkill(name)
		sk.execute = func(context.Context, *types.SkillContext, types.SkillConfig) (*types.SkillResult, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return &types.SkillResult{SkillName: name}, nil
		}
		return sk
	}

	invs := make([]Invocation, 0, 6)
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		invs = append(invs, Invocation{
			Skill:   mk(name),
			Context: testContext("load"),
			Config:  types.DefaultSkillConfig(name),
		})
	}

	results, err := e.ExecuteMany(context.Background(), invs, StrategyParallel)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, r := range results {
		assert.True(t, r.Succeeded())
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteManyUnknownStrategy(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	sk := newTestSkill("any")
	invs := []Invocation{{Skill: sk, Context: testContext("x"), Config: types.DefaultSkillConfig("any")}}

	_, err := e.ExecuteMany(context.Background(), invs, Strategy("round_robin"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownStrategy))
}

func TestExecuteManyEmpty(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))
	results, err := e.ExecuteMany(context.Background(), nil, StrategyParallel)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestExecuteSequentialStopOnError(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))

	bad := newTestSkill("bad")
	bad.execute = func(context.Context, *types.SkillContext, types.SkillConfig) (*types.SkillResult, error) {
		return nil, errors.New("fail fast")
	}
	never := newTestSkill("never")
	ran := int32(0)
	never.execute = func(context.Context, *types.SkillContext, types.SkillConfig) (*types.SkillResult, error) {
		atomic.AddInt32(&ran, 1)
		return &types.SkillResult{SkillName: "never"}, nil
	}

	invs := []Invocation{
		{Skill: bad, Context: testContext("x"), Config: types.DefaultSkillConfig("bad")},
		{Skill: never, Context: testContext("x"), Config: types.DefaultSkillConfig("never")},
	}

	results := e.ExecuteSequential(context.Background(), invs, true)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Zero(t, atomic.LoadInt32(&ran))

	// stopOnError=false 时失败不阻断后续
	results = e.ExecuteSequential(context.Background(), invs, false)
	require.Len(t, results, 2)
	assert.True(t, results[1].Succeeded())
}

func TestExecuteAdaptivePreservesOrder(t *testing.T) {
	e := NewExecutor(4, nil, nil, zaptest.NewLogger(t))

	// fast: 并发额度 >1 且预算短；slow: 串行收尾
	fast := func(name string) *testSkill {
		return newTestSkill(name, func(m *types.SkillMetadata) {
			m.ConcurrentLimit = 4
			m.MaxExecutionTime = time.Second
		})
	}
	slow := func(name string) *testSkill {
		return newTestSkill(name, func(m *types.SkillMetadata) {
			m.ConcurrentLimit = 1
			m.MaxExecutionTime = time.Minute
		})
	}

	order := []string{"s1", "f1", "s2", "f2"}
	invs := []Invocation{
		{Skill: slow("s1"), Context: testContext("x"), Config: types.DefaultSkillConfig("s1")},
		{Skill: fast("f1"), Context: testContext("x"), Config: types.DefaultSkillConfig("f1")},
		{Skill: slow("s2"), Context: testContext("x"), Config: types.DefaultSkillConfig("s2")},
		{Skill: fast("f2"), Context: testContext("x"), Config: types.DefaultSkillConfig("f2")},
	}

	results, err := e.ExecuteMany(context.Background(), invs, StrategyAdaptive)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, order[i], r.SkillName)
		assert.True(t, r.Succeeded())
	}
}

func TestExecutorCancelExecution(t *testing.T) {
	e := NewExecutor(2, nil, nil, zaptest.NewLogger(t))

	sk := newTestSkill("longrun")
	started := make(chan struct{})
	sk.execute = func(ctx context.Context, _ *types.SkillContext, _ types.SkillConfig) (*types.SkillResult, error) {
		close(started)
		<-ctx.Done()
		return nil, types.NewError(types.ErrCancelled, "stopped")
	}

	done := make(chan *types.SkillResult, 1)
	go func() {
		done <- e.Execute(context.Background(), sk, testContext("x"), types.DefaultSkillConfig("longrun"))
	}()

	<-started
	var id string
	require.Eventually(t, func() bool {
		act := e.ActiveExecutions()
		if len(act) != 1 {
			return false
		}
		id = act[0].ID
		return true
	}, time.Second, 5*time.Millisecond)

	assert.True(t, e.CancelExecution(id))
	assert.False(t, e.CancelExecution(id)) // 已移除

	res := <-done
	assert.Equal(t, types.StatusCancelled, res.Status)
	assert.Empty(t, e.ActiveExecutions())
}

func TestExecutorDefaultsConcurrency(t *testing.T) {
	e := NewExecutor(0, nil, nil, nil)
	assert.EqualValues(t, 5, e.MaxConcurrent())
}
