package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Transport metrics
	WSMessages  *prometheus.CounterVec
	WSConnected prometheus.Gauge

	// Load lifecycle metrics
	Loads           *prometheus.CounterVec
	LoadFailures    *prometheus.CounterVec
	LoadBlocks      *prometheus.CounterVec
	WatchdogExpired prometheus.Counter

	// Mirror metrics
	Mutations  *prometheus.CounterVec
	QueueDepth prometheus.Gauge

	// Session metrics
	SessionsActive prometheus.Gauge
}

// NewMetrics creates collectors registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "browsersync_http_request_duration_seconds",
				Help:    "HTTP API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_ws_messages_total",
				Help: "Total number of transport frames by direction and command",
			},
			[]string{"direction", "command"},
		),
		WSConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsersync_ws_connected",
				Help: "1 while the remote session transport is open",
			},
		),

		Loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_loads_total",
				Help: "Load lifecycle events by outcome",
			},
			[]string{"outcome"},
		),
		LoadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_load_failures_total",
				Help: "Recorded load failures by reason",
			},
			[]string{"reason"},
		),
		LoadBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_load_blocks_total",
				Help: "Navigations refused by the failure policy",
			},
			[]string{"kind"},
		),
		WatchdogExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "browsersync_watchdog_expired_total",
				Help: "Loads declared stalled by the watchdog",
			},
		),

		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsersync_mutations_total",
				Help: "Mirror operations applied by name",
			},
			[]string{"op"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsersync_mirror_queue_depth",
				Help: "Mirror operations waiting to be applied",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsersync_sessions_active",
				Help: "Number of attached sessions",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWSMessage records a transport frame.
func (m *Metrics) RecordWSMessage(direction, command string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, command).Inc()
}

// SetConnected flips the transport gauge.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.WSConnected.Set(1)
	} else {
		m.WSConnected.Set(0)
	}
}

// RecordLoad records a lifecycle outcome.
func (m *Metrics) RecordLoad(outcome string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(outcome).Inc()
}

// RecordFailure records a failure written to the tracker.
func (m *Metrics) RecordFailure(reason string) {
	if m == nil {
		return
	}
	m.LoadFailures.WithLabelValues(reason).Inc()
}

// RecordBlock records a policy refusal.
func (m *Metrics) RecordBlock(kind string) {
	if m == nil {
		return
	}
	m.LoadBlocks.WithLabelValues(kind).Inc()
}

// IncWatchdogExpired counts a stalled load.
func (m *Metrics) IncWatchdogExpired() {
	if m == nil {
		return
	}
	m.WatchdogExpired.Inc()
}

// RecordMutation records an applied mirror operation.
func (m *Metrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

// SetQueueDepth reports pending mirror operations.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// IncSessions increments active sessions.
func (m *Metrics) IncSessions() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// DecSessions decrements active sessions.
func (m *Metrics) DecSessions() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}
