// Package metrics 暴露引擎的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 技能引擎指标收集器。所有方法并发安全，nil 接收者为空操作,
// 方便在不接监控的场景直接传 nil。
type Collector struct {
	// ========== 执行指标 ==========
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	activeExecutions  prometheus.Gauge

	// ========== 缓存指标 ==========
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// ========== 匹配与分类指标 ==========
	skillSelections    *prometheus.CounterVec
	intentClassified   *prometheus.CounterVec
	matchedSkillsCount prometheus.Histogram
}

// NewCollector 在给定 Registerer 上注册引擎指标。reg 为 nil 时使用
// 默认全局注册表。
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		executionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillflow",
			Name:      "skill_executions_total",
			Help:      "技能执行总数，按技能名与最终状态分组",
		}, []string{"skill", "status"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skillflow",
			Name:      "skill_execution_duration_seconds",
			Help:      "技能执行耗时分布",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"skill"}),
		activeExecutions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "skillflow",
			Name:      "active_executions",
			Help:      "当前在途执行数",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skillflow",
			Name:      "result_cache_hits_total",
			Help:      "结果缓存命中数",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skillflow",
			Name:      "result_cache_misses_total",
			Help:      "结果缓存未命中数",
		}),
		skillSelections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillflow",
			Name:      "skill_selections_total",
			Help:      "技能被匹配器选中的次数",
		}, []string{"skill"}),
		intentClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillflow",
			Name:      "intents_classified_total",
			Help:      "意图识别结果分布",
		}, []string{"intent"}),
		matchedSkillsCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skillflow",
			Name:      "matched_skills_per_request",
			Help:      "单次请求匹配到的技能数",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
	}
}

// ObserveExecution 记录一次技能执行。
func (c *Collector) ObserveExecution(skill, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.executionsTotal.WithLabelValues(skill, status).Inc()
	c.executionDuration.WithLabelValues(skill).Observe(d.Seconds())
}

// ExecutionStarted / ExecutionFinished 维护在途执行数。
func (c *Collector) ExecutionStarted() {
	if c == nil {
		return
	}
	c.activeExecutions.Inc()
}

func (c *Collector) ExecutionFinished() {
	if c == nil {
		return
	}
	c.activeExecutions.Dec()
}

// ObserveCachedExecution 把缓存命中短路的请求计入执行总数，状态为
// cached。不进耗时直方图，缓存命中不代表真实执行耗时。
func (c *Collector) ObserveCachedExecution(skill string) {
	if c == nil {
		return
	}
	c.executionsTotal.WithLabelValues(skill, "cached").Inc()
}

// ObserveCache 记录一次缓存访问。
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheHits.Inc()
	} else {
		c.cacheMisses.Inc()
	}
}

// ObserveSelection 记录技能被选中。
func (c *Collector) ObserveSelection(skill string) {
	if c == nil {
		return
	}
	c.skillSelections.WithLabelValues(skill).Inc()
}

// ObserveIntent 记录一次意图识别结果。
func (c *Collector) ObserveIntent(intent string) {
	if c == nil {
		return
	}
	c.intentClassified.WithLabelValues(intent).Inc()
}

// ObserveMatchCount 记录单次请求匹配到的技能数。
func (c *Collector) ObserveMatchCount(n int) {
	if c == nil {
		return
	}
	c.matchedSkillsCount.Observe(float64(n))
}
