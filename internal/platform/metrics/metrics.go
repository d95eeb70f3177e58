package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the flow counters.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeMismatch  = "mismatch"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
	ReportDuration  *prometheus.HistogramVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on reg. Tests pass a fresh
// prometheus.NewRegistry(); main passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profreg_registrations_total",
			Help: "Registration form submissions by outcome",
		}, []string{"outcome"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profreg_verifications_total",
			Help: "Verification code submissions by outcome",
		}, []string{"outcome"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profreg_verification_emails_total",
			Help: "Verification emails handed to the relay by outcome",
		}, []string{"outcome"}),
		ReportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profreg_report_duration_seconds",
			Help:    "Duration of listing and frequency report generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"report"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// IncrementRegistration records one /upload outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

// IncrementVerification records one /verify outcome.
func (m *Metrics) IncrementVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

// IncrementEmail records one dispatch attempt.
func (m *Metrics) IncrementEmail(outcome string) {
	m.EmailsSent.WithLabelValues(outcome).Inc()
}

// ObserveReport records a report duration. Call with time.Now() at the start.
func (m *Metrics) ObserveReport(report string, start time.Time) {
	m.ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}
