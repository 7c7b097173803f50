package syncer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// newBlockingRunner returns a runner whose first search call parks on a
// channel, so a pass can be held in flight deterministically.
func newBlockingRunner(t *testing.T) (*Runner, chan struct{}, chan struct{}) {
	t.Helper()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","refresh_token":"rt","expires_in":3600}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			close(started)
			<-release
		})
		fmt.Fprint(w, `{"results":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	accounts, err := store.Open(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { accounts.Close() })
	require.NoError(t, accounts.CreateAccount(context.Background(), &store.Account{HubID: "hub-1", RefreshToken: "rt"}))

	runner := &Runner{
		Accounts: accounts,
		Client:   hubspot.NewClient(srv.URL, "cid", "cs"),
		Sink:     &recordingSink{},
		Sleep:    noSleep,
	}
	return runner, started, release
}

func TestManagerRefusesConcurrentPass(t *testing.T) {
	runner, started, release := newBlockingRunner(t)
	m := NewManager(runner)

	require.NoError(t, m.Trigger(context.Background()))
	<-started

	assert.True(t, m.IsRunning())
	assert.EqualError(t, m.Trigger(context.Background()), "sync already running")

	close(release)
	assert.Eventually(t, func() bool { return !m.IsRunning() }, 5*time.Second, 10*time.Millisecond)

	// A fresh trigger is accepted once the pass has finished.
	require.NoError(t, m.Trigger(context.Background()))
	assert.Eventually(t, func() bool { return !m.IsRunning() }, 5*time.Second, 10*time.Millisecond)
}

func TestManagerStopWithoutRunningPass(t *testing.T) {
	m := NewManager(&Runner{})
	assert.False(t, m.IsRunning())
	m.Stop()
	assert.False(t, m.IsRunning())
}
