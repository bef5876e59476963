// Package metrics records skill activity in a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"garage-skill/internal/domain"
)

// Metrics holds the registry and the meters the skill updates. It satisfies
// application.Recorder.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CommandsTotal   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_requests_total",
		Help: "Total number of voice requests processed.",
	}, []string{"kind", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "garage_request_duration_seconds",
		Help:    "Time spent answering a voice request, login included.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
	}, []string{"kind"})

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_door_commands_total",
		Help: "Door commands sent to the backend.",
	}, []string{"command", "status"})

	reg.MustRegister(requests, duration, commands)

	return &Metrics{
		Registry:        reg,
		RequestsTotal:   requests,
		RequestDuration: duration,
		CommandsTotal:   commands,
	}
}

func (m *Metrics) ObserveRequest(kind, outcome string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(kind, outcome).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCommand(cmd domain.Command, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CommandsTotal.WithLabelValues(string(cmd), status).Inc()
}
