package domain_test

import (
	"errors"
	"testing"

	"garage-skill/internal/domain"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		id        string
		leftIndex int
		want      int
		wantErr   bool
	}{
		{id: "left", leftIndex: 0, want: 0},
		{id: "right", leftIndex: 0, want: 1},
		{id: "left", leftIndex: 1, want: 1},
		{id: "right", leftIndex: 1, want: 0},
		{id: "both", leftIndex: 1, want: 0},
		{id: "1", want: 0},
		{id: "2", want: 1},
		{id: "0", want: -1},
		{id: "garage", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			sel, err := domain.ParseSelector(tt.id)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidSelector) {
					t.Fatalf("error: got %v, want ErrInvalidSelector", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelector error: %v", err)
			}
			if got := sel.Index(tt.leftIndex); got != tt.want {
				t.Errorf("Index(%d): got %d, want %d", tt.leftIndex, got, tt.want)
			}
		})
	}
}

func TestDoorState_Satisfies(t *testing.T) {
	tests := []struct {
		state domain.DoorState
		open  bool
		close bool
	}{
		{state: domain.DoorStateOpen, open: true},
		{state: domain.DoorStateOpening, open: true},
		{state: domain.DoorStateClosed, close: true},
		{state: domain.DoorStateClosing, close: true},
		{state: domain.DoorStateStopped},
		{state: "transition"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Satisfies(domain.CommandOpen); got != tt.open {
				t.Errorf("Satisfies(open): got %t, want %t", got, tt.open)
			}
			if got := tt.state.Satisfies(domain.CommandClose); got != tt.close {
				t.Errorf("Satisfies(close): got %t, want %t", got, tt.close)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	for _, id := range []string{"open", "close"} {
		if cmd, err := domain.ParseCommand(id); err != nil || string(cmd) != id {
			t.Errorf("ParseCommand(%q): got %q, %v", id, cmd, err)
		}
	}
	if _, err := domain.ParseCommand("shut"); !errors.Is(err, domain.ErrInvalidCommand) {
		t.Errorf("ParseCommand(shut): got %v, want ErrInvalidCommand", err)
	}
}

func TestParseIntent(t *testing.T) {
	tests := map[string]domain.Intent{
		"StateIntent":         domain.IntentState,
		"AllStatesIntent":     domain.IntentAllStates,
		"MoveIntent":          domain.IntentMove,
		"AMAZON.HelpIntent":   domain.IntentHelp,
		"AMAZON.StopIntent":   domain.IntentStop,
		"AMAZON.CancelIntent": domain.IntentStop,
	}
	for name, want := range tests {
		if got, err := domain.ParseIntent(name); err != nil || got != want {
			t.Errorf("ParseIntent(%q): got %v, %v", name, got, err)
		}
	}
	if _, err := domain.ParseIntent("AMAZON.FallbackIntent"); !errors.Is(err, domain.ErrUnknownIntent) {
		t.Errorf("got %v, want ErrUnknownIntent", err)
	}
}
