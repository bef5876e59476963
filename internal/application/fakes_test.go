package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"garage-skill/internal/alexa"
	"garage-skill/internal/application"
	"garage-skill/internal/domain"
)

type mockDoor struct {
	name  string
	state domain.DoorState
	err   error

	mu     sync.Mutex
	opens  int
	closes int
}

func (d *mockDoor) Name() string            { return d.name }
func (d *mockDoor) State() domain.DoorState { return d.state }

func (d *mockDoor) Open(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.opens++
	return nil
}

func (d *mockDoor) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.closes++
	return nil
}

func (d *mockDoor) calls() (opens, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes
}

type mockSession struct {
	doors  []application.Door
	closed bool
}

func (s *mockSession) Doors() []application.Door { return s.doors }

func (s *mockSession) Close() error {
	s.closed = true
	return nil
}

type mockService struct {
	session *mockSession
	err     error
	logins  int
}

func (m *mockService) Login(_ context.Context) (application.DoorSession, error) {
	m.logins++
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

type request struct {
	kind    string
	outcome string
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []request
	commands []domain.Command
	failures int
}

func (r *recordingMetrics) ObserveRequest(kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, request{kind: kind, outcome: outcome})
}

func (r *recordingMetrics) ObserveCommand(cmd domain.Command, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if err != nil {
		r.failures++
	}
}

var errRemote = errors.New("remote unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func closedDoors() (*mockDoor, *mockDoor) {
	return &mockDoor{name: "Left Garage", state: domain.DoorStateClosed},
		&mockDoor{name: "Right Garage", state: domain.DoorStateClosed}
}

func doorList(doors ...*mockDoor) []application.Door {
	out := make([]application.Door, len(doors))
	for i, d := range doors {
		out[i] = d
	}
	return out
}

func slot(spoken, id string) alexa.Slot {
	return alexa.Slot{
		Value: spoken,
		Resolutions: &alexa.Resolutions{
			ResolutionsPerAuthority: []alexa.Authority{{
				Status: &alexa.AuthorityStatus{Code: "ER_SUCCESS_MATCH"},
				Values: []alexa.ResolvedValue{{Value: alexa.ValueID{Name: id, ID: id}}},
			}},
		},
	}
}

var (
	leftDoorName    = slot("the left door", "left")
	rightDoorName   = slot("the right door", "right")
	bothDoorName    = slot("both doors", "both")
	oneDoorName     = slot("1", "1")
	closedDoorState = slot("closed", "closed")
	openDoorState   = slot("open", "open")
	openAction      = slot("open", "open")
	closeAction     = slot("shut", "close")
)

func intentRequest(name string, slots map[string]alexa.Slot) alexa.Request {
	return alexa.Request{
		Type:      "IntentRequest",
		RequestID: "amzn1.echo-api.request.test",
		Intent:    &alexa.Intent{Name: name, Slots: slots},
	}
}

func newDispatcher(settings application.Settings) (*application.Dispatcher, *recordingNotifier, *recordingMetrics) {
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	return application.NewDispatcher(settings, notifier, metrics, discardLogger()), notifier, metrics
}
