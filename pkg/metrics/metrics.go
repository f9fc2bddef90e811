package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	couponIssues   *prometheus.CounterVec
	saleEvents     *prometheus.CounterVec
	rollupRuns     *prometheus.CounterVec
	rollupDuration *prometheus.HistogramVec
	gatherer       prometheus.Gatherer
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		couponIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coupon_issue_total",
			Help: "Coupon issue attempts by result.",
		}, []string{"result"}),
		saleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_sale_events_total",
			Help: "Sale events seen by the ranking counter by result.",
		}, []string{"result"}),
		rollupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_rollup_runs_total",
			Help: "Ranking rollup runs by window kind and result.",
		}, []string{"kind", "result"}),
		rollupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranking_rollup_duration_seconds",
			Help:    "Ranking rollup duration by window kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		gatherer: reg,
	}
	reg.MustRegister(m.couponIssues, m.saleEvents, m.rollupRuns, m.rollupDuration)
	return m
}

func (m *Metrics) IssueResult(result string) {
	if m == nil {
		return
	}
	m.couponIssues.WithLabelValues(result).Inc()
}

func (m *Metrics) SaleEvent(result string) {
	if m == nil {
		return
	}
	m.saleEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) RollupRun(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rollupRuns.WithLabelValues(kind, result).Inc()
	m.rollupDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
