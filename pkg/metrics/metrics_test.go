package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IssueResult("issued")
	m.IssueResult("issued")
	m.IssueResult("sold_out")
	m.RollupRun("day", "ok", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.couponIssues.WithLabelValues("issued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.couponIssues.WithLabelValues("sold_out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rollupRuns.WithLabelValues("day", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IssueResult("issued")
		m.SaleEvent("recorded")
		m.RollupRun("week", "failed", time.Millisecond)
	})
}
