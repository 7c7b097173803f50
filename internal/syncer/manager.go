package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Manager guards the runner so only one sync pass is in flight at a time.
// Accounts and entities must be processed sequentially, so a trigger while
// a pass is running is refused rather than queued.
type Manager struct {
	runner *Runner

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewManager creates a manager for the given runner.
func NewManager(runner *Runner) *Manager {
	return &Manager{runner: runner}
}

// Trigger starts a sync pass in the background. Returns an error if a pass
// is already running.
func (m *Manager) Trigger(parent context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("sync already running")
	}

	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	go func() {
		log.Printf("sync pass start")
		if err := m.runner.Run(ctx); err != nil {
			log.Printf("sync pass error: %v", err)
		}

		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
		log.Printf("sync pass finish")
	}()

	return nil
}

// IsRunning reports whether a sync pass is in flight.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Stop cancels the in-flight pass, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Schedule runs a pass immediately and then on every tick until ctx is
// done. Ticks that land while a pass is still running are skipped.
func (m *Manager) Schedule(ctx context.Context, interval time.Duration) {
	if err := m.Trigger(ctx); err != nil {
		log.Printf("trigger sync: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping scheduled sync")
			return
		case <-ticker.C:
			if err := m.Trigger(ctx); err != nil {
				log.Printf("trigger sync: %v", err)
			}
		}
	}
}
