package hubspot

import (
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the CRM API. The status code drives
// retry classification: 429 is rate limiting, 401 is an expired or revoked
// token, anything else is treated as transient.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // parsed from the Retry-After header, 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot: status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the remote signalled rate limiting.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Unauthorized reports whether the access token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// RetryAfterOrDefault returns the server-provided wait, or def when the
// response carried no Retry-After header.
func (e *APIError) RetryAfterOrDefault(def time.Duration) time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return def
}

// AuthError means the refresh-token grant itself failed. It is fatal for
// the current operation and is never retried by the executor.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("hubspot: token refresh failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
