package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"garage-skill/internal/alexa"
	"garage-skill/internal/domain"
)

var ErrNoDoors = errors.New("account has no garage doors")

// maxDoors is the number of doors a household can address by voice.
const maxDoors = 2

// Skill runs one voice request end to end: login, dispatch, response.
type Skill struct {
	service    DoorService
	dispatcher *Dispatcher
	metrics    Recorder
	logger     *slog.Logger
}

func NewSkill(service DoorService, dispatcher *Dispatcher, metrics Recorder, logger *slog.Logger) *Skill {
	return &Skill{
		service:    service,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Process answers one request envelope. The door session lives exactly as
// long as this call. A returned error means no response should be sent.
func (s *Skill) Process(ctx context.Context, env *alexa.RequestEnvelope) (*alexa.ResponseEnvelope, error) {
	start := time.Now()
	kind := requestKind(env)

	resp, err := s.process(ctx, env)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Error("processing request",
			"request_id", env.Request.RequestID,
			"type", env.Request.Type,
			"error", err,
		)
	}
	s.metrics.ObserveRequest(kind, outcome, time.Since(start))

	return resp, err
}

func (s *Skill) process(ctx context.Context, env *alexa.RequestEnvelope) (*alexa.ResponseEnvelope, error) {
	session, err := s.service.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("releasing door session", "error", err)
		}
	}()

	doors := session.Doors()
	if len(doors) == 0 {
		return nil, ErrNoDoors
	}
	if len(doors) > maxDoors {
		s.logger.Warn("more doors than supported, using the first two", "doors", len(doors))
		doors = doors[:maxDoors]
	}

	if env.Session.New {
		s.logger.Info("new session",
			"request_id", env.Request.RequestID,
			"session_id", env.Session.SessionID,
		)
	}

	speechlet, err := s.dispatcher.Handle(ctx, doors, env.Request)
	if err != nil {
		return nil, err
	}

	return alexa.NewResponseEnvelope(speechlet), nil
}

// requestKind labels a request for metrics with a bounded set of values.
func requestKind(env *alexa.RequestEnvelope) string {
	if env.Request.Intent != nil {
		if intent, err := domain.ParseIntent(env.Request.Intent.Name); err == nil {
			return intent.String()
		}
		return "unknown"
	}
	if t, err := alexa.ParseRequestType(env.Request.Type); err == nil {
		return t.String()
	}
	return "unknown"
}
