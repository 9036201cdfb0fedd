package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restDataset(t *testing.T, dc config.DatasetConfig) *Rest {
	t.Helper()
	dc.AllowLocal = true
	if dc.Retry == nil {
		dc.Retry = &config.RetryConfig{MaxRetries: 2, BaseDelay: "1ms", MaxDelay: "2ms"}
	}
	ds, err := NewRest("api", dc, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNewRestRequiresURL(t *testing.T) {
	_, err := NewRest("api", config.DatasetConfig{Type: "rest"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestNewRestRefusesLocalAddresses(t *testing.T) {
	_, err := NewRest("api", config.DatasetConfig{Type: "rest", URL: "http://127.0.0.1:9/rows"}, zerolog.Nop())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "url", ve.Field)
	assert.Contains(t, ve.Reason, "loopback")
}

func TestRestFetchShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		resultPath string
		want       int
	}{
		{"array", `[{"semaine":"S1"},{"semaine":"S2"}]`, "", 2},
		{"data wrapper", `{"data":[{"a":1},{"a":2},{"a":3}]}`, "", 3},
		{"results wrapper", `{"results":[{"a":1}]}`, "", 1},
		{"single object", `{"a":1}`, "", 1},
		{"result path", `{"payload":{"items":[{"a":1},{"a":2}]}}`, "payload.items", 2},
		{"empty", ``, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := jsonServer(t, http.StatusOK, tt.body)
			ds := restDataset(t, config.DatasetConfig{URL: srv.URL, ResultPath: tt.resultPath})
			rows, err := ds.Fetch(context.Background())
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestRestClientErrorIsNotRetried(t *testing.T) {
	srv, calls := jsonServer(t, http.StatusNotFound, `missing`)
	ds := restDataset(t, config.DatasetConfig{URL: srv.URL})

	_, err := ds.Fetch(context.Background())
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.StatusCode)
	assert.Equal(t, "missing", httpErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRestServerErrorIsRetried(t *testing.T) {
	srv, calls := jsonServer(t, http.StatusServiceUnavailable, `busy`)
	ds := restDataset(t, config.DatasetConfig{URL: srv.URL})

	_, err := ds.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestRestInvalidJSON(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `{not json`)
	ds := restDataset(t, config.DatasetConfig{URL: srv.URL})

	_, err := ds.Fetch(context.Background())
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRestHeadersExpandEnv(t *testing.T) {
	t.Setenv("SCROLLY_TOKEN", "s3cret")
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ds := restDataset(t, config.DatasetConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer ${SCROLLY_TOKEN}"},
	})
	_, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", got.Load())
}

func TestRestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv, calls := jsonServer(t, http.StatusBadGateway, ``)
	ds := restDataset(t, config.DatasetConfig{
		URL:   srv.URL,
		Retry: &config.RetryConfig{MaxRetries: 0},
	})

	for i := 0; i < DefaultCircuitBreakerConfig().FailureThreshold; i++ {
		_, err := ds.Fetch(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, ds.Breaker().State())

	before := atomic.LoadInt32(calls)
	_, err := ds.Fetch(context.Background())
	var open *CircuitOpenError
	assert.ErrorAs(t, err, &open)
	assert.Equal(t, before, atomic.LoadInt32(calls))
}
