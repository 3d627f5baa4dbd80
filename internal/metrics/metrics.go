// ABOUTME: Prometheus metrics recorder for chat traffic and agent client activity
// ABOUTME: Implements the foundry.Recorder interface; exposed via promhttp on the metrics route

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records relay activity into Prometheus metrics.
type Recorder struct {
	registry *prometheus.Registry

	chatRequests     *prometheus.CounterVec
	threadsCreated   prometheus.Counter
	runPolls         *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder backed by its own registry, so tests can
// create as many as they like without duplicate-registration panics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		chatRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_chat_requests_total",
				Help: "Total chat requests by outcome",
			},
			[]string{"outcome"},
		),
		threadsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_threads_created_total",
				Help: "Total conversation threads created on the agent service",
			},
		),
		runPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_run_polls_total",
				Help: "Total run-status polls by observed status",
			},
			[]string{"status"},
		),
		exchangeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_exchange_duration_seconds",
				Help:    "Duration of full message exchanges in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"outcome"},
		),
	}
}

// ThreadCreated implements foundry.Recorder.
func (r *Recorder) ThreadCreated() {
	r.threadsCreated.Inc()
}

// RunPolled implements foundry.Recorder.
func (r *Recorder) RunPolled(status string) {
	r.runPolls.WithLabelValues(status).Inc()
}

// ExchangeFinished implements foundry.Recorder.
func (r *Recorder) ExchangeFinished(outcome string, elapsed time.Duration) {
	r.exchangeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ChatRequest counts one inbound chat request by outcome
// (ok, validation_error, auth_error, remote_error, transport_error).
func (r *Recorder) ChatRequest(outcome string) {
	r.chatRequests.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
