// Package metrics exposes Prometheus collectors for file manager operations
// on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yarokim83/filemanager/optypes"
)

// PhaseCanceled labels operations that ended through Cancel.
const PhaseCanceled = "canceled"

// Metrics holds the operation collectors. A nil *Metrics records nothing.
type Metrics struct {
	reg      *prometheus.Registry
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	inflight *prometheus.GaugeVec
	bytes    *prometheus.CounterVec
	renamed  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	started := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filemanager",
		Name:      "operations_started_total",
		Help:      "Total number of operations started, by kind.",
	}, []string{"kind"})
	finished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filemanager",
		Name:      "operations_finished_total",
		Help:      "Total number of operations finished, by kind and final phase.",
	}, []string{"kind", "phase"}) // phase = "done" | "error" | "canceled"
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "filemanager",
		Name:      "operations_inflight",
		Help:      "Current number of running operations.",
	}, []string{"kind"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filemanager",
		Name:      "transfer_bytes_total",
		Help:      "Total bytes moved by uploads and downloads.",
	}, []string{"kind"})
	renamed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filemanager",
		Name:      "rename_objects_total",
		Help:      "Objects processed by prefix renames, by result.",
	}, []string{"result"}) // result = "copied" | "failed"
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filemanager",
		Name:      "operation_duration_seconds",
		Help:      "Histogram of operation durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	_ = reg.Register(started)
	_ = reg.Register(finished)
	_ = reg.Register(inflight)
	_ = reg.Register(bytes)
	_ = reg.Register(renamed)
	_ = reg.Register(duration)

	return &Metrics{
		reg:      reg,
		started:  started,
		finished: finished,
		inflight: inflight,
		bytes:    bytes,
		renamed:  renamed,
		duration: duration,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Started records a new operation of kind.
func (m *Metrics) Started(kind optypes.Kind) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(string(kind)).Inc()
	m.inflight.WithLabelValues(string(kind)).Inc()
}

// Finished records the end of an operation; phase is "done", "error" or
// PhaseCanceled.
func (m *Metrics) Finished(kind optypes.Kind, phase string, dur time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(string(kind), phase).Inc()
	m.inflight.WithLabelValues(string(kind)).Dec()
	m.duration.WithLabelValues(string(kind)).Observe(dur.Seconds())
}

// Transferred adds n bytes moved by an operation of kind.
func (m *Metrics) Transferred(kind optypes.Kind, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(string(kind)).Add(float64(n))
}

// RenameObject records the outcome of moving one object.
func (m *Metrics) RenameObject(ok bool) {
	if m == nil {
		return
	}
	result := "copied"
	if !ok {
		result = "failed"
	}
	m.renamed.WithLabelValues(result).Inc()
}
