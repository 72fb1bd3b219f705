// Package metrics exposes Prometheus collectors for cycle and dispatch
// observability.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tidewatch/intelsentry/internal/models"
)

// Recorder wraps the Prometheus collectors used by the run loop.
type Recorder struct {
	cycles        prometheus.Counter
	cycleFailures prometheus.Counter
	cycleDuration prometheus.Histogram
	candidates    *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
}

// New registers and returns the collectors.
func New() *Recorder {
	return &Recorder{
		cycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intelsentry_cycles_total",
			Help: "Total number of completed evaluation cycles",
		}),
		cycleFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intelsentry_cycle_failures_total",
			Help: "Total number of failed evaluation cycles",
		}),
		cycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "intelsentry_cycle_duration_seconds",
			Help:    "Duration of evaluation cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		candidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intelsentry_candidates_total",
			Help: "Total candidate alerts produced, by type",
		}, []string{"type"}),
		dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intelsentry_dispatches_total",
			Help: "Total messages successfully dispatched, by type",
		}, []string{"type"}),
		rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intelsentry_dispatch_rejections_total",
			Help: "Total candidates not dispatched, by type",
		}, []string{"type"}),
	}
}

// RecordCycle records one completed cycle and its duration.
func (r *Recorder) RecordCycle(d time.Duration) {
	r.cycles.Inc()
	r.cycleDuration.Observe(d.Seconds())
}

// RecordCycleFailure records a failed cycle.
func (r *Recorder) RecordCycleFailure() {
	r.cycleFailures.Inc()
}

// RecordCandidate records a candidate alert by type.
func (r *Recorder) RecordCandidate(typ models.AlertType) {
	r.candidates.WithLabelValues(string(typ)).Inc()
}

// RecordResult records a dispatch result by outcome and type.
func (r *Recorder) RecordResult(res models.DispatchResult) {
	if res.Dispatched {
		r.dispatches.WithLabelValues(string(res.Type)).Inc()
		return
	}
	r.rejections.WithLabelValues(string(res.Type)).Inc()
}

// ListenAndServe blocks serving the /metrics endpoint on addr.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
