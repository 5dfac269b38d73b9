// Package metrics defines the arena's Prometheus collectors. A single
// Metrics value is constructed at startup and passed to the components that
// record into it; there is no package-level registry state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all arena collectors, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	QueueDepth       *prometheus.GaugeVec
	QueueTimeouts    *prometheus.CounterVec
	PairingsTotal    *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	SessionsTotal    *prometheus.CounterVec
	TicksFanned      prometheus.Counter
	OrdersAdmitted   prometheus.Counter
	OrdersRejected   *prometheus.CounterVec
	RecipientEvicted *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arena_queue_depth",
			Help: "Waiting matchmaker entries per mode.",
		}, []string{"mode"}),
		QueueTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_queue_timeouts_total",
			Help: "Queue entries cancelled by wait timeout, per mode.",
		}, []string{"mode"}),
		PairingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_pairings_total",
			Help: "Pairings produced by the matchmaker, per mode.",
		}, []string{"mode"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_active_sessions",
			Help: "Match sessions currently tracked by the registry.",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_sessions_total",
			Help: "Terminal sessions by final status.",
		}, []string{"status"}),
		TicksFanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_ticks_fanned_total",
			Help: "Authoritative snapshots fanned out to recipients.",
		}),
		OrdersAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_orders_admitted_total",
			Help: "Orders admitted and forwarded to the simulator.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_orders_rejected_total",
			Help: "Orders rejected by the validator or APM limiter, per code.",
		}, []string{"code"}),
		RecipientEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_recipients_evicted_total",
			Help: "Recipients evicted from fan-out, per kind.",
		}, []string{"kind"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_events_published_total",
			Help: "Persistence events published, per event kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.QueueDepth, m.QueueTimeouts, m.PairingsTotal,
		m.ActiveSessions, m.SessionsTotal, m.TicksFanned,
		m.OrdersAdmitted, m.OrdersRejected, m.RecipientEvicted,
		m.EventsPublished,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
