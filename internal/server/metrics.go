package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/gradviz/internal/optimization/controller"
	"github.com/copyleftdev/gradviz/internal/optimization/descent"
)

// Metrics are the Prometheus collectors fed by controller events.
type Metrics struct {
	steps    *prometheus.CounterVec
	stops    *prometheus.CounterVec
	sessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradviz",
			Name:      "steps_total",
			Help:      "Descent steps attempted, by objective and outcome.",
		}, []string{"objective", "outcome"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradviz",
			Name:      "run_stops_total",
			Help:      "Runs that left the running state, by objective and reason.",
		}, []string{"objective", "reason"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gradviz",
			Name:      "sessions_active",
			Help:      "Live simulation sessions.",
		}),
	}
	reg.MustRegister(m.steps, m.stops, m.sessions)
	return m
}

// Observe records a controller event.
func (m *Metrics) Observe(ev controller.Event) {
	switch ev.Kind {
	case controller.EventStep:
		m.steps.WithLabelValues(ev.Snapshot.Objective, ev.Outcome.String()).Inc()
	case controller.EventStop:
		reason := "manual"
		if ev.Snapshot.StopReason != descent.StopNone {
			reason = ev.Snapshot.StopReason.String()
		}
		m.stops.WithLabelValues(ev.Snapshot.Objective, reason).Inc()
	}
}
