package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"garage-skill/internal/alexa"
)

type invokeFlags struct {
	event       string
	requestType string
	intent      string
	slots       []string
}

func newInvokeCmd(flags *globalFlags) *cobra.Command {
	f := &invokeFlags{}

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Answer a single skill request and print the response",
		Long: `Answer a single skill request and print the response JSON.

The request comes from --event (a file, or - for stdin) or is built from flags:

  garage invoke --event request.json
  garage invoke --type launch
  garage invoke --intent MoveIntent --slot Name=left --slot Command=shut:close
  garage invoke --intent StateIntent --slot "Name=door one:1"

A slot is Name=spoken[:id]. Without an id the spoken value is used as the id.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log)

			env, err := f.envelope(cmd.InOrStdin())
			if err != nil {
				return err
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout)
			defer cancel()

			resp, err := a.skill.Process(ctx, env)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&f.event, "event", "e", "", "request envelope JSON file, - for stdin")
	cmd.Flags().StringVarP(&f.requestType, "type", "t", "", "request type: launch, intent or session_ended")
	cmd.Flags().StringVarP(&f.intent, "intent", "i", "", "intent name, implies --type intent")
	cmd.Flags().StringArrayVarP(&f.slots, "slot", "s", nil, "slot as Name=spoken[:id], repeatable")

	return cmd
}

func (f *invokeFlags) envelope(stdin io.Reader) (*alexa.RequestEnvelope, error) {
	if f.event != "" {
		return readEnvelope(f.event, stdin)
	}
	return buildEnvelope(f.requestType, f.intent, f.slots)
}

func readEnvelope(path string, stdin io.Reader) (*alexa.RequestEnvelope, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening event: %w", err)
		}
		defer file.Close()
		r = file
	}

	var env alexa.RequestEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("parsing event: %w", err)
	}
	return &env, nil
}

// buildEnvelope synthesizes a fresh single-request session.
func buildEnvelope(requestType, intentName string, slots []string) (*alexa.RequestEnvelope, error) {
	if requestType == "" {
		requestType = "launch"
		if intentName != "" {
			requestType = "intent"
		}
	}

	typeName, err := requestTypeName(requestType)
	if err != nil {
		return nil, err
	}

	env := &alexa.RequestEnvelope{
		Version: alexa.Version,
		Session: alexa.Session{
			New:       true,
			SessionID: "SessionId." + uuid.NewString(),
		},
		Request: alexa.Request{
			Type:      typeName,
			RequestID: "EdwRequestId." + uuid.NewString(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Locale:    "en-US",
		},
	}

	switch typeName {
	case "IntentRequest":
		if intentName == "" {
			return nil, fmt.Errorf("--intent is required for intent requests")
		}
		intent := &alexa.Intent{Name: intentName, Slots: make(map[string]alexa.Slot)}
		for _, raw := range slots {
			slot, err := parseSlot(raw)
			if err != nil {
				return nil, err
			}
			intent.Slots[slot.Name] = slot
		}
		env.Request.Intent = intent
	case "SessionEndedRequest":
		env.Session.New = false
		env.Request.Reason = "USER_INITIATED"
	}

	if len(slots) > 0 && env.Request.Intent == nil {
		return nil, fmt.Errorf("--slot only applies to intent requests")
	}

	return env, nil
}

func requestTypeName(s string) (string, error) {
	switch strings.ToLower(s) {
	case "launch", "launchrequest":
		return "LaunchRequest", nil
	case "intent", "intentrequest":
		return "IntentRequest", nil
	case "session_ended", "sessionended", "sessionendedrequest":
		return "SessionEndedRequest", nil
	}
	return "", fmt.Errorf("unknown request type %q", s)
}

// parseSlot reads Name=spoken[:id] into a slot resolved by the skill's own
// slot type.
func parseSlot(raw string) (alexa.Slot, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || name == "" || value == "" {
		return alexa.Slot{}, fmt.Errorf("slot %q: want Name=spoken[:id]", raw)
	}

	spoken, id, hasID := strings.Cut(value, ":")
	if !hasID || id == "" {
		id = spoken
	}

	return alexa.Slot{
		Name:  name,
		Value: spoken,
		Resolutions: &alexa.Resolutions{
			ResolutionsPerAuthority: []alexa.Authority{{
				Authority: "amzn1.er-authority.echo-sdk.garage." + name,
				Status:    &alexa.AuthorityStatus{Code: "ER_SUCCESS_MATCH"},
				Values: []alexa.ResolvedValue{{
					Value: alexa.ValueID{Name: spoken, ID: id},
				}},
			}},
		},
	}, nil
}
