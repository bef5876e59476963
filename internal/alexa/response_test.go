package alexa_test

import (
	"encoding/json"
	"testing"

	"garage-skill/internal/alexa"
)

func TestNewSpeechlet(t *testing.T) {
	t.Run("ends session without reprompt", func(t *testing.T) {
		s := alexa.NewSpeechlet("Close door", "Ok, closing 1 now", "")
		if !s.ShouldEndSession {
			t.Error("session should end")
		}
		if s.Card.Title != "MyQ - Close door" || s.Card.Content != "Ok, closing 1 now" {
			t.Errorf("card: got %+v", s.Card)
		}
		if s.OutputSpeech.Type != "PlainText" || s.Card.Type != "Simple" {
			t.Errorf("types: got %q and %q", s.OutputSpeech.Type, s.Card.Type)
		}
	})

	t.Run("keeps session open with reprompt", func(t *testing.T) {
		s := alexa.NewSpeechlet("Try again", "I didn't understand that.", "Ask me again.")
		if s.ShouldEndSession {
			t.Error("session should stay open")
		}
		if s.Reprompt.OutputSpeech.Text != "Ask me again." {
			t.Errorf("reprompt: got %q", s.Reprompt.OutputSpeech.Text)
		}
	})
}

func TestResponseEnvelope_JSON(t *testing.T) {
	data, err := json.Marshal(alexa.NewResponseEnvelope(alexa.NewSpeechlet("Goodbye", "Goodbye", "")))
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}

	var got struct {
		Version           string         `json:"version"`
		SessionAttributes map[string]any `json:"session_attributes"`
		Response          struct {
			OutputSpeech struct {
				Text string `json:"text"`
			} `json:"outputSpeech"`
			ShouldEndSession *bool `json:"should_end_session"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}

	if got.Version != "1.0" || got.SessionAttributes == nil {
		t.Errorf("envelope: %s", data)
	}
	if got.Response.OutputSpeech.Text != "Goodbye" {
		t.Errorf("speech: got %q", got.Response.OutputSpeech.Text)
	}
	if got.Response.ShouldEndSession == nil || !*got.Response.ShouldEndSession {
		t.Errorf("should_end_session: %s", data)
	}
}
