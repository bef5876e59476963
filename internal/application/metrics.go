package application

import (
	"time"

	"garage-skill/internal/domain"
)

// Recorder receives request and door command outcomes for metrics.
type Recorder interface {
	ObserveRequest(kind, outcome string, elapsed time.Duration)
	ObserveCommand(cmd domain.Command, err error)
}

type NoopRecorder struct{}

func (n *NoopRecorder) ObserveRequest(_, _ string, _ time.Duration) {}

func (n *NoopRecorder) ObserveCommand(_ domain.Command, _ error) {}
