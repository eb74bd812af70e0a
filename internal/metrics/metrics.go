// Package metrics exposes prometheus counters for the session subsystem.
// All methods are safe on a nil *Metrics so components can run without them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "eduportal"

type Metrics struct {
	RefreshFlights     *prometheus.CounterVec
	RefreshJoins       prometheus.Counter
	RequestRetries     *prometheus.CounterVec
	ValidationAttempts *prometheus.CounterVec
	GuardDecisions     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg (skipped when reg is nil)
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshFlights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "flights_total",
			Help:      "Upstream token refresh attempts by outcome.",
		}, []string{"outcome"}),
		RefreshJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "joins_total",
			Help:      "Callers that joined an in-flight refresh instead of starting one.",
		}),
		RequestRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "unauthorized_total",
			Help:      "401 responses seen by the authenticating transport, by resolution.",
		}, []string{"resolution"}),
		ValidationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "validation_attempts_total",
			Help:      "Calls to the who-am-i endpoint by outcome.",
		}, []string{"outcome"}),
		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route admission decisions.",
		}, []string{"decision"}),
	}
	if reg != nil {
		reg.MustRegister(m.RefreshFlights, m.RefreshJoins, m.RequestRetries, m.ValidationAttempts, m.GuardDecisions)
	}
	return m
}

func (m *Metrics) RefreshFlight(outcome string) {
	if m == nil {
		return
	}
	m.RefreshFlights.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RefreshJoined() {
	if m == nil {
		return
	}
	m.RefreshJoins.Inc()
}

func (m *Metrics) Unauthorized(resolution string) {
	if m == nil {
		return
	}
	m.RequestRetries.WithLabelValues(resolution).Inc()
}

func (m *Metrics) Validation(outcome string) {
	if m == nil {
		return
	}
	m.ValidationAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Decision(decision string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(decision).Inc()
}
