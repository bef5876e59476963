package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownIntent = errors.New("unknown intent")

type Intent int

const (
	IntentState Intent = iota + 1
	IntentAllStates
	IntentMove
	IntentHelp
	IntentStop
)

var intentNames = map[string]Intent{
	"StateIntent":         IntentState,
	"AllStatesIntent":     IntentAllStates,
	"MoveIntent":          IntentMove,
	"AMAZON.HelpIntent":   IntentHelp,
	"AMAZON.StopIntent":   IntentStop,
	"AMAZON.CancelIntent": IntentStop,
}

func ParseIntent(name string) (Intent, error) {
	if intent, ok := intentNames[name]; ok {
		return intent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIntent, name)
}

func (i Intent) String() string {
	switch i {
	case IntentState:
		return "state"
	case IntentAllStates:
		return "all_states"
	case IntentMove:
		return "move"
	case IntentHelp:
		return "help"
	case IntentStop:
		return "stop"
	default:
		return "unknown"
	}
}
