// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes, also used as the "outcome" label.
const (
	OutcomeFetchFailed = "fetch_failed"
	OutcomeEmpty       = "empty"
	OutcomeUnchanged   = "unchanged"
	OutcomeNotified    = "notified"
	OutcomePanic       = "panic"
	OutcomeSkipped     = "skipped"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropwatch_cycles_total",
			Help: "Poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dropwatch_cycle_duration_seconds",
			Help:    "Duration of a complete poll cycle",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
	)

	stateErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropwatch_state_errors_total",
			Help: "State store failures by operation",
		},
		[]string{"op"}, // op: read|write
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropwatch_notifications_total",
			Help: "Notification attempts by sink and result",
		},
		[]string{"sink", "status"}, // status: success|failure|unresolved|circuit_open|panic
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dropwatch_notification_duration_seconds",
			Help:    "Notification send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"sink"},
	)

	rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dropwatch_rate_limit_wait_seconds",
			Help:    "Time a sink waited for its rate limiter",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"sink"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dropwatch_circuit_breaker_state",
			Help: "Circuit breaker state per sink (0=closed, 1=half-open, 2=open)",
		},
		[]string{"sink"},
	)

	gatewayConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dropwatch_stream_gateway_connected",
			Help: "1 while the Discord gateway session is ready",
		},
	)

	lastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dropwatch_last_successful_fetch_timestamp_seconds",
			Help: "Unix time of the last cycle that reached the source",
		},
	)
)

// RecordCycle counts one finished cycle and its duration.
func RecordCycle(outcome string, d time.Duration) {
	cyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		cycleDuration.Observe(d.Seconds())
	}
	if outcome == OutcomeEmpty || outcome == OutcomeUnchanged || outcome == OutcomeNotified {
		lastSuccess.SetToCurrentTime()
	}
}

func RecordStateError(op string) {
	stateErrorsTotal.WithLabelValues(op).Inc()
}

// RecordNotification counts one delivery attempt for sink.
func RecordNotification(sink, status string, d time.Duration) {
	notificationsTotal.WithLabelValues(sink, status).Inc()
	notificationDuration.WithLabelValues(sink).Observe(d.Seconds())
}

func RecordRateLimitWait(sink string, d time.Duration) {
	rateLimitWait.WithLabelValues(sink).Observe(d.Seconds())
}

// SetBreakerState maps gobreaker states: 0 closed, 1 half-open, 2 open.
func SetBreakerState(sink string, state int) {
	breakerState.WithLabelValues(sink).Set(float64(state))
}

func SetGatewayConnected(ok bool) {
	if ok {
		gatewayConnected.Set(1)
		return
	}
	gatewayConnected.Set(0)
}
