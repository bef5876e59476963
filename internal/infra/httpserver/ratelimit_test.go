package httpserver

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request in window should be limited")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("request after window should pass")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	now = now.Add(2 * time.Minute)
	rl.Allow("c")

	if len(rl.buckets) != 1 {
		t.Errorf("buckets: got %d, want 1", len(rl.buckets))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:443", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:443", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1:51234", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/alexa", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP: got %s, want %s", got, tt.want)
			}
		})
	}
}
