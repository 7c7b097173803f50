package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

const (
	// maxAttempts bounds the fault budget for unauthorized and transient
	// failures. Rate-limit waits do not consume it.
	maxAttempts = 5

	baseBackoff      = 5 * time.Second
	defaultRateLimit = 5 * time.Second
)

// AbortError means the attempt budget for one entity's fetch was
// exhausted. It is fatal for that entity's run only.
type AbortError struct {
	Entity   store.Entity
	Attempts int
	Err      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts", e.Entity, e.Attempts)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Executor wraps a single remote search call with bounded retries:
// rate-limited responses wait out the Retry-After period without consuming
// an attempt, unauthorized responses refresh the session and consume one,
// and any other failure backs off exponentially and consumes one.
type Executor struct {
	Session *hubspot.Session

	// Sleep is swappable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Execute runs call until it succeeds or the attempt budget is spent. A
// session already expired before the first attempt is refreshed
// proactively; a failed refresh propagates immediately as *hubspot.AuthError.
func (e *Executor) Execute(ctx context.Context, account *store.Account, entity store.Entity, call func(context.Context) (*hubspot.SearchResponse, error)) (*hubspot.SearchResponse, error) {
	sleep := e.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	if e.Session.Expired(time.Now()) {
		if err := e.Session.Refresh(ctx, account); err != nil {
			return nil, err
		}
	}

	attempt := 0
	for {
		res, err := call(ctx)
		if err == nil {
			return res, nil
		}

		var apiErr *hubspot.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.RateLimited():
			// Expected backpressure, not a fault: wait it out for free.
			sleep(apiErr.RetryAfterOrDefault(defaultRateLimit))

		case errors.As(err, &apiErr) && apiErr.Unauthorized():
			// A stale token fails every subsequent attempt identically, so
			// refresh eagerly before retrying.
			attempt++
			if attempt >= maxAttempts {
				return nil, &AbortError{Entity: entity, Attempts: attempt, Err: err}
			}
			if rerr := e.Session.Refresh(ctx, account); rerr != nil {
				return nil, rerr
			}

		default:
			wait := baseBackoff * time.Duration(1<<attempt)
			attempt++
			if attempt >= maxAttempts {
				return nil, &AbortError{Entity: entity, Attempts: attempt, Err: err}
			}
			sleep(wait)
		}
	}
}
