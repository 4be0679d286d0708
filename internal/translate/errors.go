package translate

import (
	"errors"
	"fmt"
)

// ErrAPINotConfigured is returned synchronously by Enqueue when no provider
// credential is available. No row status is touched in that case.
var ErrAPINotConfigured = errors.New("translation API not configured")

// RateLimitError signals a provider throttle (HTTP 429 or equivalent). It is
// transient: the invoker backs off and retries before surfacing it.
type RateLimitError struct {
	StatusCode int
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsRateLimit reports whether err is a provider rate-limit condition.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// ParseError signals that the provider responded but the payload was not the
// expected JSON array. Parse failures are assumed deterministic and are never
// retried.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse provider response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
