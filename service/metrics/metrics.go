package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Stacks API Metrics
	stacksAPICallsTotal     *prometheus.CounterVec
	stacksAPICallDuration   *prometheus.HistogramVec
	stacksAPIRateLimitWaits *prometheus.CounterVec

	// Confirmation Metrics
	confirmationProbesTotal *prometheus.CounterVec
	confirmationDuration    *prometheus.HistogramVec

	// Submission Metrics
	transfersSubmittedTotal *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		stacksAPICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacks_api_calls_total",
				Help: "Total number of Stacks API calls by method and status",
			},
			[]string{"method", "status", "network"},
		),
		stacksAPICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stacks_api_call_duration_seconds",
				Help:    "Duration of Stacks API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "network"},
		),
		stacksAPIRateLimitWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacks_api_rate_limit_waits_total",
				Help: "Total number of Stacks API calls delayed by the local rate limiter",
			},
			[]string{"network"},
		),

		confirmationProbesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_probes_total",
				Help: "Total number of transaction status probes by observed outcome",
			},
			[]string{"outcome"},
		),
		confirmationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirmation_duration_seconds",
				Help:    "Time from first probe to terminal state or timeout",
				Buckets: []float64{1, 10, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),

		transfersSubmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_submitted_total",
				Help: "Total number of transfers handed to the wallet provider by result",
			},
			[]string{"status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Stacks API metric helpers

// RecordAPICall records a Stacks API call with duration.
func (m *Metrics) RecordAPICall(method, status, network string, duration float64) {
	m.stacksAPICallsTotal.WithLabelValues(method, status, network).Inc()
	m.stacksAPICallDuration.WithLabelValues(method, network).Observe(duration)
}

// RecordRateLimitWait records a call that had to wait for a limiter token.
func (m *Metrics) RecordRateLimitWait(network string) {
	m.stacksAPIRateLimitWaits.WithLabelValues(network).Inc()
}

// Confirmation metric helpers

// RecordProbe records one status probe. Outcome is pending, not_found,
// confirmed, failed or error.
func (m *Metrics) RecordProbe(outcome string) {
	m.confirmationProbesTotal.WithLabelValues(outcome).Inc()
}

// RecordConfirmation records how long a confirmation wait took.
func (m *Metrics) RecordConfirmation(outcome string, duration float64) {
	m.confirmationDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordSubmission records a wallet submission attempt.
func (m *Metrics) RecordSubmission(status string) {
	m.transfersSubmittedTotal.WithLabelValues(status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}
