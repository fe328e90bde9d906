// Package metrics exposes Prometheus collectors for pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spotify_dl"

// Recorder counts pipeline stage activity. It satisfies pipeline.Recorder.
type Recorder struct {
	attempts  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	successes *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	failures  *prometheus.CounterVec
	inFlight  *prometheus.GaugeVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of Process calls, labeled by stage.",
		}, []string{"stage"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of requeued items, labeled by stage.",
		}, []string{"stage"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "successes_total",
			Help:      "Total number of items finished successfully, labeled by stage.",
		}, []string{"stage"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of successes that used a lower-ranked candidate, labeled by stage.",
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of permanently failed items, labeled by stage.",
		}, []string{"stage"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_items",
			Help:      "Number of items without a terminal outcome, labeled by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(r.attempts, r.retries, r.successes, r.fallbacks, r.failures, r.inFlight)
	return r
}

func (r *Recorder) Attempt(stage string)  { r.attempts.WithLabelValues(stage).Inc() }
func (r *Recorder) Retry(stage string)    { r.retries.WithLabelValues(stage).Inc() }
func (r *Recorder) Success(stage string)  { r.successes.WithLabelValues(stage).Inc() }
func (r *Recorder) Fallback(stage string) { r.fallbacks.WithLabelValues(stage).Inc() }
func (r *Recorder) Failure(stage string)  { r.failures.WithLabelValues(stage).Inc() }

// InFlight sets the number of unfinished items for stage.
func (r *Recorder) InFlight(stage string, n int) {
	r.inFlight.WithLabelValues(stage).Set(float64(n))
}
