package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestWithRetrySuccess(t *testing.T) {
	calls := 0
	rows, err := WithRetry(context.Background(), "d", fastRetry(3), zerolog.Nop(), func(ctx context.Context) ([]Row, error) {
		calls++
		return []Row{{"a": 1}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(rows) != 1 {
		t.Errorf("calls=%d rows=%d", calls, len(rows))
	}
}

func TestWithRetryExhausted(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), "d", fastRetry(2), zerolog.Nop(), func(ctx context.Context) ([]Row, error) {
		calls++
		return nil, newSourceError("d", "request", errors.New("connection refused"))
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	var se *SourceError
	if !errors.As(err, &se) || se.Retryable {
		t.Errorf("expected a non-retryable SourceError after exhaustion, got %v", err)
	}
}

func TestWithRetryNonRetryableError(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), "d", fastRetry(3), zerolog.Nop(), func(ctx context.Context) ([]Row, error) {
		calls++
		return nil, &HTTPError{Dataset: "d", StatusCode: 404}
	})
	if err == nil || calls != 1 {
		t.Errorf("expected one attempt and an error, got calls=%d err=%v", calls, err)
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	rows, err := WithRetry(context.Background(), "d", fastRetry(3), zerolog.Nop(), func(ctx context.Context) ([]Row, error) {
		calls++
		if calls < 3 {
			return nil, &HTTPError{Dataset: "d", StatusCode: 503}
		}
		return []Row{{"ok": true}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(rows) != 1 {
		t.Errorf("calls=%d rows=%d", calls, len(rows))
	}
}

func TestWithRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}
	calls := 0
	_, err := WithRetry(ctx, "d", cfg, zerolog.Nop(), func(ctx context.Context) ([]Row, error) {
		calls++
		cancel()
		return nil, &HTTPError{Dataset: "d", StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable source error", &SourceError{Retryable: true}, true},
		{"spent source error", &SourceError{Retryable: false}, false},
		{"circuit open", &CircuitOpenError{}, false},
		{"validation", &ValidationError{}, false},
		{"http 503", &HTTPError{StatusCode: 503}, true},
		{"http 400", &HTTPError{StatusCode: 400}, false},
		{"plain", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.want {
				t.Errorf("shouldRetry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoffCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(attempt, cfg)
		if d > 1200*time.Millisecond {
			t.Errorf("attempt %d: delay %v exceeds cap plus jitter", attempt, d)
		}
	}
	if d := backoff(0, cfg); d < 80*time.Millisecond || d > 120*time.Millisecond {
		t.Errorf("first delay %v outside jitter band", d)
	}
}
