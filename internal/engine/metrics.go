package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/graphsync/internal/social"
)

// Metrics holds the engine's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	items      *prometheus.CounterVec
	mismatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		items: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphsync_items_total",
			Help: "Items processed by sync operations, by operation and result",
		}, []string{"operation", "result"}),
		mismatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphsync_audit_mismatches_total",
			Help: "Audit mismatches found, by dimension",
		}, []string{"dimension"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphsync_operation_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		}, []string{"operation"}),
	}
}

func (m *Metrics) observeBatch(r *BatchResult) {
	if m == nil || r == nil {
		return
	}
	op := string(r.Operation)
	m.items.WithLabelValues(op, "succeeded").Add(float64(r.Succeeded))
	m.items.WithLabelValues(op, "failed").Add(float64(r.Failed))
	if r.Skipped > 0 {
		m.items.WithLabelValues(op, "skipped").Add(float64(r.Skipped))
	}
	m.duration.WithLabelValues(op).Observe(r.Duration.Seconds())
}

func (m *Metrics) observeMismatch(dim social.Dimension, n int) {
	if m == nil || n == 0 {
		return
	}
	m.mismatches.WithLabelValues(string(dim)).Add(float64(n))
}

func (m *Metrics) observeDuration(op Operation, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(op)).Observe(d.Seconds())
}
