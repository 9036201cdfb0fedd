package source

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// SourceError wraps a dataset failure with its context.
type SourceError struct {
	Dataset   string // dataset name, e.g. "cas"
	Operation string // "read", "request", "query"
	Err       error
	Retryable bool
}

func (e *SourceError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("dataset %q %s failed: %v", e.Dataset, e.Operation, e.Err)
	}
	return fmt.Sprintf("dataset %q: %v", e.Dataset, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned for a dataset name with no configuration.
type NotFoundError struct {
	Dataset string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %q is not configured", e.Dataset)
}

// UnsupportedTypeError is returned for unknown dataset types.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported dataset type: " + e.Type
}

// TimeoutError reports a load that exceeded its deadline.
type TimeoutError struct {
	Dataset  string
	Duration string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("dataset %q: load timed out after %s", e.Dataset, e.Duration)
}

// ValidationError represents invalid data or configuration
type ValidationError struct {
	Dataset string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("dataset %q: invalid %s: %s", e.Dataset, e.Field, e.Reason)
	}
	return fmt.Sprintf("dataset %q: validation failed: %s", e.Dataset, e.Reason)
}

// HTTPError represents a non-2xx response
type HTTPError struct {
	Dataset    string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("dataset %q: HTTP %d %s: %s", e.Dataset, e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("dataset %q: HTTP %d %s", e.Dataset, e.StatusCode, e.Status)
}

// IsRetryable returns true for 5xx errors and 429 (rate limit)
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// CircuitOpenError indicates the circuit breaker is open
type CircuitOpenError struct {
	Dataset string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("dataset %q: circuit breaker open, service temporarily unavailable", e.Dataset)
}

// newSourceError creates a SourceError, classifying err.
func newSourceError(dataset, operation string, err error) *SourceError {
	return &SourceError{
		Dataset:   dataset,
		Operation: operation,
		Err:       err,
		Retryable: isRetryableError(err),
	}
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporary failure",
	"try again",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// UserFriendlyMessage returns a message fit for readers of the article.
func UserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return "Service temporarily unavailable. Please try again later."
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 401:
			return "Authentication required."
		case httpErr.StatusCode == 403:
			return "Access denied."
		case httpErr.StatusCode == 404:
			return "Data not found."
		case httpErr.StatusCode == 429:
			return "Too many requests. Please slow down."
		case httpErr.StatusCode >= 500:
			return "Server error. Please try again later."
		default:
			return fmt.Sprintf("Request failed (HTTP %d).", httpErr.StatusCode)
		}
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return "Loading the data timed out. Please try again."
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("The %s data is not available.", notFound.Dataset)
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Sprintf("Invalid data: %s", validationErr.Reason)
	}

	return "Failed to load the charts' data. Please try again."
}
