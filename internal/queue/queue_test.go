package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	batches [][]Action
	delay   time.Duration
	err     error
}

func (s *captureSink) Deliver(_ context.Context, batch []Action) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	cp := make([]Action, len(batch))
	copy(cp, batch)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *captureSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *captureSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func pushN(ctx context.Context, q *Queue, n int) {
	for i := 0; i < n; i++ {
		q.Push(ctx, Action{ID: fmt.Sprintf("a-%d", i), Name: "Organization Updated"})
	}
}

func TestQueueDeliversEveryActionExactlyOnce(t *testing.T) {
	tests := []struct {
		name        string
		pushes      int
		wantBatches int
	}{
		{name: "empty run delivers nothing", pushes: 0, wantBatches: 0},
		{name: "exactly at threshold delivers one final batch", pushes: DefaultFlushThreshold, wantBatches: 1},
		{name: "one past threshold delivers one overflow batch", pushes: DefaultFlushThreshold + 1, wantBatches: 1},
		{name: "below threshold delivers one final batch", pushes: 42, wantBatches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sink := &captureSink{}
			q := New(sink, 0)

			pushN(ctx, q, tt.pushes)
			require.NoError(t, q.Drain(ctx))

			assert.Equal(t, tt.pushes, sink.total())
			assert.Equal(t, tt.wantBatches, sink.batchCount())
		})
	}
}

func TestQueueOverflowThenRemainder(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	q := New(sink, 2)

	pushN(ctx, q, 5)
	require.NoError(t, q.Drain(ctx))

	// Overflow at the third push (batch of 3), remainder of 2 on drain.
	require.Equal(t, 2, sink.batchCount())
	assert.Equal(t, 5, sink.total())
	assert.Len(t, sink.batches[0], 3)
	assert.Len(t, sink.batches[1], 2)
}

func TestQueuePreservesPushOrderWithinBatches(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	q := New(sink, 3)

	pushN(ctx, q, 6)
	require.NoError(t, q.Drain(ctx))

	var ids []string
	for _, b := range sink.batches {
		for _, a := range b {
			ids = append(ids, a.ID)
		}
	}
	assert.Equal(t, []string{"a-0", "a-1", "a-2", "a-3", "a-4", "a-5"}, ids)
}

func TestQueueDrainWaitsForInflightFlush(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{delay: 50 * time.Millisecond}
	q := New(sink, 1)

	pushN(ctx, q, 2) // triggers an async overflow flush
	require.NoError(t, q.Drain(ctx))

	assert.Equal(t, 2, sink.total())
}

func TestQueueDrainSurfacesFlushError(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("sink unavailable")
	sink := &captureSink{err: wantErr}
	q := New(sink, 1)

	pushN(ctx, q, 2)
	err := q.Drain(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestActionDedupeKeyIsStable(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	a := Action{ID: "x", Name: "Person Created", Identity: "a@b.com", Timestamp: ts}
	b := Action{ID: "y", Name: "Person Created", Identity: "a@b.com", Timestamp: ts}

	assert.Equal(t, a.DedupeKey(), b.DedupeKey())
}
