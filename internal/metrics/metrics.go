// Package metrics records per-run clipping counters with Prometheus and writes
// them out in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithOffsetBuckets sets the histogram buckets, in seconds, for clock offsets.
func WithOffsetBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.offsetBuckets = buckets
		}
	}
}

// Manager owns a private registry and the clipper's metrics. A nil *Manager
// is valid and records nothing.
type Manager struct {
	namespace     string
	offsetBuckets []float64
	registry      *prometheus.Registry

	clips          *prometheus.CounterVec
	eventsDetected *prometheus.CounterVec
	matchesFailed  *prometheus.CounterVec
	clockOffset    prometheus.Histogram
}

// NewManager creates a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:     "highlight_clipper",
		offsetBuckets: []float64{-60, -30, -15, -5, -1, 0, 1, 5, 15, 30, 60},
		registry:      prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.clips = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "clips_total",
		Help:      "Clips handled in this run by event kind and outcome",
	}, []string{"kind", "outcome"})

	m.eventsDetected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_detected_total",
		Help:      "Events detected by kind",
	}, []string{"kind"})

	m.matchesFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "matches_failed_total",
		Help:      "Matches skipped because of an error, by reason",
	}, []string{"reason"})

	m.clockOffset = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "clock_offset_seconds",
		Help:      "Calibrated offset between match clock and video clock",
		Buckets:   m.offsetBuckets,
	})
	return m
}

// Clip outcomes.
const (
	OutcomeExtracted = "extracted"
	OutcomeExisting  = "existing"
	OutcomeFailed    = "failed"
)

// ClipDone counts one clip outcome.
func (m *Manager) ClipDone(kind, outcome string) {
	if m == nil {
		return
	}
	m.clips.WithLabelValues(kind, outcome).Inc()
}

// EventsDetected adds n detected events of kind.
func (m *Manager) EventsDetected(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsDetected.WithLabelValues(kind).Add(float64(n))
}

// MatchFailed counts a skipped match.
func (m *Manager) MatchFailed(reason string) {
	if m == nil {
		return
	}
	m.matchesFailed.WithLabelValues(reason).Inc()
}

// ObserveOffset records a calibrated offset in seconds.
func (m *Manager) ObserveOffset(seconds float64) {
	if m == nil {
		return
	}
	m.clockOffset.Observe(seconds)
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile atomically writes all metrics to path for the node-exporter
// textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
