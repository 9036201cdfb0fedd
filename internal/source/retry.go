package source

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt (default: 3)
	BaseDelay  time.Duration // delay before the first retry (default: 100ms)
	MaxDelay   time.Duration // cap on any delay (default: 5s)
	Multiplier float64       // backoff factor (default: 2.0)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// FetchFunc loads rows once.
type FetchFunc func(ctx context.Context) ([]Row, error)

// WithRetry runs fn until it succeeds, fails with a non-retryable error, or
// the attempts are exhausted.
func WithRetry(ctx context.Context, dataset string, cfg RetryConfig, log zerolog.Logger, fn FetchFunc) ([]Row, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().Int("attempt", attempt+1).Msg("dataset load succeeded after retry")
			}
			return rows, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			log.Debug().Err(err).Msg("non-retryable error")
			return nil, err
		}

		if attempt < cfg.MaxRetries {
			delay := backoff(attempt, cfg)
			log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("dataset load failed, retrying")
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}

	log.Error().Err(lastErr).Int("attempts", cfg.MaxRetries+1).Msg("dataset load failed")

	var sourceErr *SourceError
	if errors.As(lastErr, &sourceErr) {
		sourceErr.Retryable = false
		return nil, lastErr
	}
	return nil, &SourceError{Dataset: dataset, Operation: "load", Err: lastErr}
}

func shouldRetry(err error) bool {
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Retryable
	}
	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return false
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	return isRetryableError(err)
}

// backoff is BaseDelay*Multiplier^attempt capped at MaxDelay, with 20%
// jitter either way.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 2
	}
	delay := float64(cfg.BaseDelay) * math.Pow(mult, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay *= 0.8 + rand.Float64()*0.4
	return time.Duration(delay)
}
