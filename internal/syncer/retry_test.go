package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// newTestSession spins up a fake OAuth token endpoint and returns a session
// bound to it, with a counter of refresh calls.
func newTestSession(t *testing.T, tokenStatus int) (*hubspot.Session, *store.Account, *int) {
	t.Helper()

	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v1/token" {
			http.NotFound(w, r)
			return
		}
		*calls++
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","refresh_token":"rt-rotated","expires_in":3600}`, *calls)
	}))
	t.Cleanup(srv.Close)

	client := hubspot.NewClient(srv.URL, "cid", "cs")
	account := &store.Account{HubID: "hub-1", AccessToken: "tok-old", RefreshToken: "rt-old"}
	return client.Session(), account, calls
}

func noSleep(time.Duration) {}

func TestExecutorTransientExhaustsBudget(t *testing.T) {
	sess, account, _ := newTestSession(t, http.StatusOK)
	require.NoError(t, sess.Refresh(context.Background(), account))

	var waits []time.Duration
	exec := &Executor{Session: sess, Sleep: func(d time.Duration) { waits = append(waits, d) }}

	calls := 0
	_, err := exec.Execute(context.Background(), account, store.EntityOrganizations, func(context.Context) (*hubspot.SearchResponse, error) {
		calls++
		return nil, &hubspot.APIError{StatusCode: http.StatusInternalServerError}
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, store.EntityOrganizations, abort.Entity)
	assert.Equal(t, 5, abort.Attempts)
	assert.EqualError(t, abort, "failed to fetch organizations after 5 attempts")

	assert.Equal(t, 5, calls)
	// Exponential backoff between attempts, none after the last failure.
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}, waits)
}

func TestExecutorUnauthorizedRefreshesOnce(t *testing.T) {
	sess, account, refreshes := newTestSession(t, http.StatusOK)
	require.NoError(t, sess.Refresh(context.Background(), account))
	*refreshes = 0

	exec := &Executor{Session: sess, Sleep: noSleep}

	calls := 0
	res, err := exec.Execute(context.Background(), account, store.EntityPeople, func(context.Context) (*hubspot.SearchResponse, error) {
		calls++
		if calls == 1 {
			return nil, &hubspot.APIError{StatusCode: http.StatusUnauthorized}
		}
		return &hubspot.SearchResponse{}, nil
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, *refreshes)
}

func TestExecutorRateLimitDoesNotConsumeBudget(t *testing.T) {
	sess, account, _ := newTestSession(t, http.StatusOK)
	require.NoError(t, sess.Refresh(context.Background(), account))

	var waits []time.Duration
	exec := &Executor{Session: sess, Sleep: func(d time.Duration) { waits = append(waits, d) }}

	calls := 0
	_, err := exec.Execute(context.Background(), account, store.EntityMeetings, func(context.Context) (*hubspot.SearchResponse, error) {
		calls++
		if calls <= 7 {
			return nil, &hubspot.APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Second}
		}
		return &hubspot.SearchResponse{}, nil
	})

	// Seven rate-limited responses exceed the 5-attempt fault budget but
	// never touch it.
	require.NoError(t, err)
	assert.Equal(t, 8, calls)
	assert.Len(t, waits, 7)
	for _, w := range waits {
		assert.Equal(t, time.Second, w)
	}
}

func TestExecutorRateLimitDefaultWait(t *testing.T) {
	sess, account, _ := newTestSession(t, http.StatusOK)
	require.NoError(t, sess.Refresh(context.Background(), account))

	var waits []time.Duration
	exec := &Executor{Session: sess, Sleep: func(d time.Duration) { waits = append(waits, d) }}

	calls := 0
	_, err := exec.Execute(context.Background(), account, store.EntityMeetings, func(context.Context) (*hubspot.SearchResponse, error) {
		calls++
		if calls == 1 {
			return nil, &hubspot.APIError{StatusCode: http.StatusTooManyRequests}
		}
		return &hubspot.SearchResponse{}, nil
	})

	require.NoError(t, err)
	require.Len(t, waits, 1)
	assert.Equal(t, 5*time.Second, waits[0])
}

func TestExecutorProactiveRefreshWhenExpired(t *testing.T) {
	sess, account, refreshes := newTestSession(t, http.StatusOK)

	exec := &Executor{Session: sess, Sleep: noSleep}

	// No expiry recorded yet, so the session counts as expired before the
	// first attempt.
	res, err := exec.Execute(context.Background(), account, store.EntityOrganizations, func(context.Context) (*hubspot.SearchResponse, error) {
		return &hubspot.SearchResponse{}, nil
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, *refreshes)
}

func TestExecutorFailedRefreshIsFatal(t *testing.T) {
	sess, account, _ := newTestSession(t, http.StatusBadRequest)

	exec := &Executor{Session: sess, Sleep: noSleep}

	calls := 0
	_, err := exec.Execute(context.Background(), account, store.EntityOrganizations, func(context.Context) (*hubspot.SearchResponse, error) {
		calls++
		return &hubspot.SearchResponse{}, nil
	})

	var authErr *hubspot.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, calls)
	assert.False(t, errors.As(err, new(*AbortError)))
}
