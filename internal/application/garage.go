package application

import (
	"context"

	"garage-skill/internal/domain"
)

// Door is one garage door as seen through the remote API. State is the value
// captured at login; Open and Close issue commands without waiting for the
// door to finish moving.
type Door interface {
	Name() string
	State() domain.DoorState
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// DoorSession is an authenticated connection to the remote API, scoped to a
// single request.
type DoorSession interface {
	Doors() []Door
	Close() error
}

type DoorService interface {
	Login(ctx context.Context) (DoorSession, error)
}

// Notifier tells the household a door was commanded. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(context.Context, string) error { return nil }
