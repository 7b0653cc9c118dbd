package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forwarder_dispatches_total",
			Help: "Total number of dispatch attempts by outcome (count)",
		},
		[]string{"status"},
	)

	DispatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forwarder_dispatch_failures_total",
			Help: "Total number of failed dispatches by reason (count)",
		},
		[]string{"reason"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forwarder_dispatch_duration_ms",
			Help:    "End-to-end dispatch duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forwarder_delivery_duration_ms",
			Help:    "Delivery transport call duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forwarder_active_rules",
			Help: "Number of active forwarding rules (count)",
		},
	)

	ActivityLogSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forwarder_activity_log_size",
			Help: "Number of entries currently held in the activity log (count)",
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_retry_attempts_total",
			Help: "Total number of message processing retries (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_dlq_messages_total",
			Help: "Total number of messages sent to the DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failed requests through the circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_requests_total",
			Help: "Total number of rate-limited HTTP requests by outcome (count)",
		},
		[]string{"outcome"},
	)
)

func RegisterForwarderMetrics() {
	prometheus.MustRegister(
		DispatchesTotal,
		DispatchFailuresTotal,
		DispatchDuration,
		DeliveryDuration,
		ActiveRules,
		ActivityLogSize,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
	)
}

func RegisterHTTPMetrics() {
	prometheus.MustRegister(
		RateLimitRequestsTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func ObserveDispatchDuration(d time.Duration, status string) {
	DispatchDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

func ObserveDeliveryDuration(d time.Duration, status string) {
	DeliveryDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

func SetActiveRules(n int) {
	ActiveRules.Set(float64(n))
}

func SetActivityLogSize(n int) {
	ActivityLogSize.Set(float64(n))
}
