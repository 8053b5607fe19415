package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	// nil 接收者不应 panic。
	c.ObserveExecution("storytelling", "completed", time.Second)
	c.ExecutionStarted()
	c.ExecutionFinished()
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveSelection("storytelling")
	c.ObserveIntent("storytelling")
	c.ObserveMatchCount(2)
	c.ObserveCachedExecution("storytelling")
}

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveExecution("storytelling", "completed", 100*time.Millisecond)
	c.ObserveExecution("storytelling", "completed", 200*time.Millisecond)
	c.ObserveExecution("analysis", "failed", 50*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(
		c.executionsTotal.WithLabelValues("storytelling", "completed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(
		c.executionsTotal.WithLabelValues("analysis", "failed")), 1e-9)

	c.ObserveCache(true)
	c.ObserveCache(true)
	c.ObserveCache(false)
	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheHits), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheMisses), 1e-9)

	c.ObserveCachedExecution("storytelling")
	assert.InDelta(t, 1, testutil.ToFloat64(
		c.executionsTotal.WithLabelValues("storytelling", "cached")), 1e-9)

	c.ObserveSelection("storytelling")
	c.ObserveIntent("storytelling")
	assert.InDelta(t, 1, testutil.ToFloat64(
		c.skillSelections.WithLabelValues("storytelling")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(
		c.intentClassified.WithLabelValues("storytelling")), 1e-9)
}

func TestCollectorActiveExecutionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ExecutionStarted()
	c.ExecutionStarted()
	assert.InDelta(t, 2, testutil.ToFloat64(c.activeExecutions), 1e-9)

	c.ExecutionFinished()
	assert.InDelta(t, 1, testutil.ToFloat64(c.activeExecutions), 1e-9)
}

func TestCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveExecution("storytelling", "completed", time.Millisecond)
	c.ObserveMatchCount(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["skillflow_skill_executions_total"])
	assert.True(t, names["skillflow_skill_execution_duration_seconds"])
	assert.True(t, names["skillflow_matched_skills_per_request"])
}
