package source

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/livetemplate/scrollytell/internal/security"
	"github.com/rs/zerolog"
)

const maxResponseSize = 10 * 1024 * 1024

// Rest fetches rows from a JSON HTTP endpoint.
type Rest struct {
	name       string
	url        string
	headers    map[string]string
	resultPath string
	client     *http.Client
	retry      RetryConfig
	breaker    *CircuitBreaker
	log        zerolog.Logger
}

// NewRest creates a REST dataset. Environment variables in the URL and in
// header values are expanded. Local addresses are refused unless the dataset
// sets allow_local.
func NewRest(name string, dc config.DatasetConfig, log zerolog.Logger) (*Rest, error) {
	if dc.URL == "" {
		return nil, &ValidationError{Dataset: name, Field: "url", Reason: "url is required"}
	}

	endpoint := os.ExpandEnv(dc.URL)
	if !dc.AllowLocal {
		if err := security.CheckRemoteURL(endpoint); err != nil {
			return nil, &ValidationError{Dataset: name, Field: "url", Reason: err.Error()}
		}
	}

	headers := make(map[string]string, len(dc.Headers))
	for k, v := range dc.Headers {
		headers[k] = os.ExpandEnv(v)
	}

	return &Rest{
		name:       name,
		url:        endpoint,
		headers:    headers,
		resultPath: dc.ResultPath,
		client:     &http.Client{Timeout: dc.GetTimeout()},
		retry: RetryConfig{
			MaxRetries: dc.GetRetryMaxRetries(),
			BaseDelay:  dc.GetRetryBaseDelay(),
			MaxDelay:   dc.GetRetryMaxDelay(),
			Multiplier: 2.0,
		},
		breaker: NewCircuitBreaker(name, DefaultCircuitBreakerConfig(), log),
		log:     log,
	}, nil
}

// Name returns the dataset name
func (s *Rest) Name() string {
	return s.name
}

// Fetch requests the endpoint through the circuit breaker, retrying
// transient failures.
func (s *Rest) Fetch(ctx context.Context) ([]Row, error) {
	return s.breaker.Execute(ctx, func(ctx context.Context) ([]Row, error) {
		return WithRetry(ctx, s.name, s.retry, s.log, s.fetchOnce)
	})
}

func (s *Rest) fetchOnce(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &SourceError{Dataset: s.name, Operation: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newSourceError(s.name, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{
			Dataset:    s.name,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, newSourceError(s.name, "read response", err)
	}
	if len(body) > maxResponseSize {
		return nil, &ValidationError{Dataset: s.name, Reason: "response larger than 10MB"}
	}
	return decodeRows(s.name, body, s.resultPath)
}

// Breaker exposes the circuit breaker for health reporting.
func (s *Rest) Breaker() *CircuitBreaker {
	return s.breaker
}

// Close releases idle connections.
func (s *Rest) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
