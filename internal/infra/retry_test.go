package infra_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"garage-skill/internal/infra"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	errFlaky := errors.New("flaky")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := infra.WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithRetry error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls: got %d, want 3", calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := infra.WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			return errFlaky
		})
		if !errors.Is(err, errFlaky) {
			t.Fatalf("error: got %v, want %v", err, errFlaky)
		}
		if calls != 3 {
			t.Errorf("calls: got %d, want 3", calls)
		}
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		err := infra.WithRetry(context.Background(), fastRetry(), func() error {
			calls++
			return infra.Permanent(errFlaky)
		})
		if !errors.Is(err, errFlaky) {
			t.Fatalf("error: got %v, want %v", err, errFlaky)
		}
		if calls != 1 {
			t.Errorf("calls: got %d, want 1", calls)
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := infra.WithRetry(ctx, fastRetry(), func() error {
			calls++
			cancel()
			return errFlaky
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error: got %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls: got %d, want 1", calls)
		}
	})
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantErr   bool
		wantCalls int
	}{
		{status: http.StatusOK, wantCalls: 1},
		{status: http.StatusNoContent, wantCalls: 1},
		{status: http.StatusTooManyRequests, wantErr: true, wantCalls: 3},
		{status: http.StatusBadGateway, wantErr: true, wantCalls: 3},
		{status: http.StatusUnauthorized, wantErr: true, wantCalls: 1},
		{status: http.StatusNotFound, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			calls := 0
			err := infra.WithRetry(context.Background(), fastRetry(), func() error {
				calls++
				return infra.CheckStatus("test", tt.status, []byte("body"))
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("error: got %v, want error %t", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls: got %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
