package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an optional set of Prometheus counters a Controller
// updates as it runs. Metrics collection has no effect on behavior and
// is never required; callers who don't want a /metrics endpoint simply
// never construct one, per spec.md's stance that observability is an
// external collaborator, not a forced dependency.
type Metrics struct {
	RecordsProcessed  prometheus.Counter
	NegotiationErrors prometheus.Counter
	BusyRejections    prometheus.Counter
	IdleTimeouts      prometheus.Counter
}

// NewMetrics registers a fresh set of counters on reg and returns them.
// Pass a private *prometheus.Registry (not prometheus.DefaultRegisterer)
// unless the host process already manages its own registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := prometheus.WrapRegistererWith(prometheus.Labels{"component": "tn5250r"}, reg)
	return &Metrics{
		RecordsProcessed: mustCounter(factory, "records_processed_total", "5250 records successfully applied to the display."),
		NegotiationErrors: mustCounter(factory, "negotiation_errors_total", "Telnet option negotiation errors observed."),
		BusyRejections:   mustCounter(factory, "busy_rejections_total", "Foreground calls rejected because the worker held the lock."),
		IdleTimeouts:     mustCounter(factory, "idle_timeouts_total", "Idle-timeout events surfaced without closing the connection."),
	}
}

func mustCounter(factory prometheus.Registerer, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	factory.MustRegister(c)
	return c
}
