package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OperationGetConsent    = "get_consent"
	OperationUpdateConsent = "update_consent"

	ResultPassthrough = "passthrough"
	ResultOutcome     = "outcome"
)

// Metrics tracks consent operations against SatuSehat and token acquisition.
type Metrics struct {
	ConsentRequests  *prometheus.CounterVec
	ConsentDuration  *prometheus.HistogramVec
	TokenRequests    *prometheus.CounterVec
	UpstreamStatuses *prometheus.CounterVec
}

// New registers every collector on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_requests_total",
			Help: "Consent operations by operation and result (passthrough or outcome)",
		}, []string{"operation", "result"}),
		ConsentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consent_request_duration_seconds",
			Help:    "Duration of consent operations including token acquisition",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		TokenRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satusehat_token_requests_total",
			Help: "SatuSehat access token lookups by source (cache, remote, error)",
		}, []string{"source"}),
		UpstreamStatuses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_upstream_status_total",
			Help: "HTTP status classes returned by the consent API",
		}, []string{"operation", "class"}),
	}
}

// ObserveConsent records one finished consent operation. Safe on a nil receiver.
func (m *Metrics) ObserveConsent(operation string, isOutcome bool, start time.Time) {
	if m == nil {
		return
	}
	result := ResultPassthrough
	if isOutcome {
		result = ResultOutcome
	}
	m.ConsentRequests.WithLabelValues(operation, result).Inc()
	m.ConsentDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveUpstreamStatus(operation string, statusCode int) {
	if m == nil {
		return
	}
	m.UpstreamStatuses.WithLabelValues(operation, statusClass(statusCode)).Inc()
}

func (m *Metrics) IncrementToken(source string) {
	if m == nil {
		return
	}
	m.TokenRequests.WithLabelValues(source).Inc()
}

func statusClass(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "5xx"
	case statusCode >= 400:
		return "4xx"
	case statusCode >= 300:
		return "3xx"
	case statusCode >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
