package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidSelector = errors.New("invalid door selector")
	ErrInvalidCommand  = errors.New("invalid door command")
)

// DoorState is reported by the remote device and passed through verbatim.
type DoorState string

const (
	DoorStateOpen    DoorState = "open"
	DoorStateOpening DoorState = "opening"
	DoorStateClosed  DoorState = "closed"
	DoorStateClosing DoorState = "closing"
	DoorStateStopped DoorState = "stopped"
	DoorStateUnknown DoorState = "unknown"
)

// IsOpen reports whether the door is open or on its way there.
func (s DoorState) IsOpen() bool {
	return s == DoorStateOpen || s == DoorStateOpening
}

// IsClosed reports whether the door is closed or on its way there.
func (s DoorState) IsClosed() bool {
	return s == DoorStateClosed || s == DoorStateClosing
}

// Satisfies reports whether a door in this state needs no further command.
func (s DoorState) Satisfies(cmd Command) bool {
	if cmd == CommandClose {
		return s.IsClosed()
	}
	return s.IsOpen()
}

type Command string

const (
	CommandOpen  Command = "open"
	CommandClose Command = "close"
)

func ParseCommand(id string) (Command, error) {
	switch Command(id) {
	case CommandOpen, CommandClose:
		return Command(id), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, id)
	}
}

// Verb is the progressive form used in spoken confirmations.
func (c Command) Verb() string {
	if c == CommandClose {
		return "closing"
	}
	return "opening"
}

// Target is the terminal state the command drives a door to.
func (c Command) Target() DoorState {
	if c == CommandClose {
		return DoorStateClosed
	}
	return DoorStateOpen
}

type SelectorKind int

const (
	SelectorLeft SelectorKind = iota
	SelectorRight
	SelectorBoth
	SelectorNumber
)

// Selector is a spoken reference to a door. Number is one-based.
type Selector struct {
	Kind   SelectorKind
	Number int
}

// ParseSelector reads a canonical slot id. "both" is matched first so it
// never falls through to the positional forms.
func ParseSelector(id string) (Selector, error) {
	switch id {
	case "both":
		return Selector{Kind: SelectorBoth}, nil
	case "left":
		return Selector{Kind: SelectorLeft}, nil
	case "right":
		return Selector{Kind: SelectorRight}, nil
	}

	n, err := strconv.Atoi(id)
	if err != nil {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, id)
	}
	return Selector{Kind: SelectorNumber, Number: n}, nil
}

// Index maps the selector onto a zero-based door position. leftIndex is the
// position of the left door; the right door takes the other one. Both maps to
// position zero.
func (s Selector) Index(leftIndex int) int {
	switch s.Kind {
	case SelectorLeft:
		return leftIndex
	case SelectorRight:
		return 1 - leftIndex
	case SelectorBoth:
		return 0
	default:
		return s.Number - 1
	}
}
