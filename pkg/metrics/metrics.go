// Package metrics holds the Prometheus instruments of the sketch server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OK    = "ok"
	Error = "error"
)

// Metrics groups the server's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ops         *prometheus.CounterVec
	lockWait    *prometheus.HistogramVec
	mergeSrcs   prometheus.Histogram
	cacheHits   *prometheus.CounterVec
	updateItems *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchd",
			Name:      "operations_total",
			Help:      "Sketch operations by kind, family and outcome.",
		}, []string{"op", "family", "outcome"}),
		lockWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sketchd",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a sketch's lock.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"family"}),
		mergeSrcs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sketchd",
			Name:      "merge_sources",
			Help:      "Number of sources folded per merge after deduplication.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchd",
			Name:      "serialize_cache_total",
			Help:      "Serialize cache lookups by result.",
		}, []string{"result"}),
		updateItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchd",
			Name:      "update_items_total",
			Help:      "Items applied by update calls.",
		}, []string{"family"}),
	}
}

// Op counts one operation.
func (m *Metrics) Op(op, family string, err error) {
	if m == nil {
		return
	}
	outcome := OK
	if err != nil {
		outcome = Error
	}
	m.ops.WithLabelValues(op, family, outcome).Inc()
}

// LockWait observes how long a caller waited for a sketch's lock.
func (m *Metrics) LockWait(family string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(family).Observe(d.Seconds())
}

// MergeSources observes the number of sources folded by one merge.
func (m *Metrics) MergeSources(n int) {
	if m == nil {
		return
	}
	m.mergeSrcs.Observe(float64(n))
}

// CacheLookup counts a serialize cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}

// UpdateItems counts items applied to a sketch.
func (m *Metrics) UpdateItems(family string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.updateItems.WithLabelValues(family).Add(float64(n))
}
