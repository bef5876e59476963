// Package alexa models the subset of the Alexa Skills Kit request and
// response envelopes the garage skill consumes and produces.
package alexa

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRequestType = errors.New("unknown request type")
	ErrMissingSlot        = errors.New("missing slot")
	ErrMissingResolution  = errors.New("missing slot resolution")
	ErrMissingIntent      = errors.New("intent request without intent")
)

type RequestType int

const (
	RequestLaunch RequestType = iota + 1
	RequestIntent
	RequestSessionEnded
)

func ParseRequestType(s string) (RequestType, error) {
	switch s {
	case "LaunchRequest":
		return RequestLaunch, nil
	case "IntentRequest":
		return RequestIntent, nil
	case "SessionEndedRequest":
		return RequestSessionEnded, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRequestType, s)
	}
}

func (t RequestType) String() string {
	switch t {
	case RequestLaunch:
		return "launch"
	case RequestIntent:
		return "intent"
	case RequestSessionEnded:
		return "session_ended"
	default:
		return "unknown"
	}
}

type RequestEnvelope struct {
	Version string  `json:"version,omitempty"`
	Session Session `json:"session"`
	Request Request `json:"request"`
}

type Session struct {
	New       bool   `json:"new"`
	SessionID string `json:"sessionId"`
}

type Request struct {
	Type      string  `json:"type"`
	RequestID string  `json:"requestId"`
	Timestamp string  `json:"timestamp,omitempty"`
	Locale    string  `json:"locale,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Intent    *Intent `json:"intent,omitempty"`
}

type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	Name        string       `json:"name,omitempty"`
	Value       string       `json:"value,omitempty"`
	Resolutions *Resolutions `json:"resolutions,omitempty"`
}

type Resolutions struct {
	ResolutionsPerAuthority []Authority `json:"resolutionsPerAuthority"`
}

type Authority struct {
	Authority string           `json:"authority,omitempty"`
	Status    *AuthorityStatus `json:"status,omitempty"`
	Values    []ResolvedValue  `json:"values"`
}

type AuthorityStatus struct {
	Code string `json:"code"`
}

type ResolvedValue struct {
	Value ValueID `json:"value"`
}

type ValueID struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ResolvedSlot pairs what the user said with the canonical id the platform
// resolved it to, e.g. "shut" and "close".
type ResolvedSlot struct {
	Spoken string
	ID     string
}

// Resolve returns the named slot with the first value of its first resolution
// authority.
func (i *Intent) Resolve(name string) (ResolvedSlot, error) {
	slot, ok := i.Slots[name]
	if !ok {
		return ResolvedSlot{}, fmt.Errorf("%w: %s", ErrMissingSlot, name)
	}

	if slot.Resolutions == nil || len(slot.Resolutions.ResolutionsPerAuthority) == 0 {
		return ResolvedSlot{}, fmt.Errorf("%w: %s", ErrMissingResolution, name)
	}
	values := slot.Resolutions.ResolutionsPerAuthority[0].Values
	if len(values) == 0 || values[0].Value.ID == "" {
		return ResolvedSlot{}, fmt.Errorf("%w: %s", ErrMissingResolution, name)
	}

	return ResolvedSlot{Spoken: slot.Value, ID: values[0].Value.ID}, nil
}

// Filled reports whether the user said anything for the named slot.
func (i *Intent) Filled(name string) bool {
	slot, ok := i.Slots[name]
	return ok && slot.Value != ""
}
