package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"garage-skill/config"
	"garage-skill/internal/infra/httpserver"
)

// fakeMyQ serves one account with two closed doors.
type fakeMyQ struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeMyQ) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v5/Login":
		json.NewEncoder(w).Encode(map[string]any{"SecurityToken": "tok"})
	case r.URL.Path == "/api/v5/My":
		json.NewEncoder(w).Encode(map[string]any{"Account": map[string]any{"Id": "acct"}})
	case r.URL.Path == "/api/v5.1/Accounts/acct/Devices":
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"serial_number": "CG1", "device_family": "garagedoor", "name": "Left", "state": map[string]any{"door_state": "open"}},
				{"serial_number": "CG2", "device_family": "garagedoor", "name": "Right", "state": map[string]any{"door_state": "closed"}},
			},
		})
	case r.Method == http.MethodPut:
		var body struct {
			ActionType string `json:"action_type"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.actions = append(f.actions, r.URL.Path+" "+body.ActionType)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Garage:  config.GarageConfig{Backend: config.BackendMyQ, OnlyClose: true},
		MyQ:     config.MyQConfig{UserName: "u", Password: "p", BaseURL: baseURL},
		Server:  config.ServerConfig{RequestTimeout: "5s"},
		Metrics: config.MetricsConfig{Enabled: true},
		Log:     config.LogConfig{Level: "info", Format: "text"},
	}
}

func TestApp_CloseAllOverHTTP(t *testing.T) {
	fake := &fakeMyQ{}
	backend := httptest.NewServer(fake)
	defer backend.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(testConfig(backend.URL), logger)
	if err != nil {
		t.Fatalf("newApp error: %v", err)
	}

	handler := httpserver.New(httpserver.Options{Registry: a.metrics.Registry}, a.skill, logger).Handler()

	env, err := buildEnvelope("", "MoveIntent", []string{"Name=both doors:both", "Command=close"})
	if err != nil {
		t.Fatalf("buildEnvelope error: %v", err)
	}
	body, _ := json.Marshal(env)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alexa", strings.NewReader(string(body))))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Response struct {
			OutputSpeech struct {
				Text string `json:"text"`
			} `json:"outputSpeech"`
			Card struct {
				Title string `json:"title"`
			} `json:"card"`
			ShouldEndSession bool `json:"should_end_session"`
		} `json:"response"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Response.OutputSpeech.Text != "Ok, closing the left garage door now" {
		t.Errorf("speech: got %q", resp.Response.OutputSpeech.Text)
	}
	if resp.Response.Card.Title != "MyQ - Close doors" {
		t.Errorf("card title: got %q", resp.Response.Card.Title)
	}
	if !resp.Response.ShouldEndSession {
		t.Error("session should end")
	}

	if len(fake.actions) != 1 || fake.actions[0] != "/api/v5.1/Accounts/acct/Devices/CG1/Actions close" {
		t.Errorf("actions: got %v", fake.actions)
	}

	if got := testutil.ToFloat64(a.metrics.CommandsTotal.WithLabelValues("close", "ok")); got != 1 {
		t.Errorf("close commands metric: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.metrics.RequestsTotal.WithLabelValues("move", "ok")); got != 1 {
		t.Errorf("requests metric: got %v, want 1", got)
	}
}

func TestNewDoorService_UnknownBackend(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Garage.Backend = "zigbee"

	if _, err := newDoorService(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
