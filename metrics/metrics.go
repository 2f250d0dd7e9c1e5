package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	conversationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_decisions_total",
			Help: "Inbound SMS routed by decision",
		},
		[]string{"action"},
	)

	outboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_messages_total",
			Help: "Outbound messages by kind and status",
		},
		[]string{"kind", "status"}, // kind: customer, tradie; status: sent, failed
	)

	completionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_latency_seconds",
			Help:    "Latency of chat completion requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20, 30},
		},
		[]string{"model", "status"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Inbound requests rejected by the per-sender limiter",
		},
	)

	summariesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_summaries_total",
			Help: "Daily summary runs by outcome",
		},
		[]string{"outcome"}, // sent, empty, error
	)
)

// RecordHTTPRequest records a handled request
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecision records the routing decision for an inbound SMS
func RecordDecision(action string) {
	conversationDecisionsTotal.WithLabelValues(action).Inc()
}

// RecordOutbound records an outbound send attempt
func RecordOutbound(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	outboundMessagesTotal.WithLabelValues(kind, status).Inc()
}

// RecordCompletion records a chat completion call
func RecordCompletion(model string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	completionLatency.WithLabelValues(model, status).Observe(duration.Seconds())
}

// RecordRateLimited records a rejected request
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// RecordSummary records a daily summary run
func RecordSummary(outcome string) {
	summariesSentTotal.WithLabelValues(outcome).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
