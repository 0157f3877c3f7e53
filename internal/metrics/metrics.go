package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for goscar. Every instance owns its
// own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Connection metrics
	ActiveConnections   *prometheus.GaugeVec
	ConnectionsTotal    *prometheus.CounterVec
	ConnectionsRejected *prometheus.CounterVec

	// Protocol metrics
	FramesReceived  *prometheus.CounterVec
	SNACsHandled    *prometheus.CounterVec
	UnknownSNACs    *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginAttempts *prometheus.CounterVec

	// Latency tracks handler latency quantiles for the status page.
	Latency *LatencyTracker
}

// New creates and registers all metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goscar_active_connections",
				Help: "Current number of connections being served",
			},
			[]string{"listener"},
		),

		ConnectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_connections_total",
				Help: "Total number of connections accepted",
			},
			[]string{"listener"},
		),

		ConnectionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_connections_rejected_total",
				Help: "Connections closed right after accept due to the connection cap",
			},
			[]string{"listener"},
		),

		FramesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_frames_received_total",
				Help: "Total number of FLAP frames received",
			},
			[]string{"listener", "type"},
		),

		SNACsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_snacs_handled_total",
				Help: "Total number of SNACs dispatched to a handler",
			},
			[]string{"family", "subtype", "result"}, // result: ok, error
		),

		UnknownSNACs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_snacs_unknown_total",
				Help: "SNACs with no registered handler",
			},
			[]string{"family"},
		),

		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goscar_handler_duration_seconds",
				Help:    "Time spent handling a SNAC",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"family"},
		),

		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goscar_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"result"}, // result: success, not_found, mismatch, error
		),

		Latency: NewLatencyTracker(),
	}
}

// Handler returns an http.Handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ConnectionOpened(listener string) {
	m.ActiveConnections.WithLabelValues(listener).Inc()
	m.ConnectionsTotal.WithLabelValues(listener).Inc()
}

func (m *Metrics) ConnectionClosed(listener string) {
	m.ActiveConnections.WithLabelValues(listener).Dec()
}

func (m *Metrics) ConnectionRejected(listener string) {
	m.ConnectionsRejected.WithLabelValues(listener).Inc()
}

// ObserveSNAC records the outcome of a dispatched SNAC.
func (m *Metrics) ObserveSNAC(family, subtype string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SNACsHandled.WithLabelValues(family, subtype, result).Inc()
	m.HandlerDuration.WithLabelValues(family).Observe(took.Seconds())
	m.Latency.Observe(took)
}

func (m *Metrics) UnknownSNAC(family string) {
	m.UnknownSNACs.WithLabelValues(family).Inc()
}

// FrameReceived counts an inbound frame of the given type.
func (m *Metrics) FrameReceived(listener, frameType string) {
	m.FramesReceived.WithLabelValues(listener, frameType).Inc()
}

// LoginAttempt counts a login attempt by result.
func (m *Metrics) LoginAttempt(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}
