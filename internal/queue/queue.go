// Package queue buffers actions produced by the sync engine and forwards
// them to the downstream sink in batches.
package queue

import (
	"context"
	"log"
	"sync"
)

// DefaultFlushThreshold is the buffer size above which a batch is flushed
// to the sink without waiting for the end of the run.
const DefaultFlushThreshold = 2000

// Sink durably ingests batches of actions. Delivery is at-least-once
// across runs; the sink must tolerate duplicates.
type Sink interface {
	Deliver(ctx context.Context, batch []Action) error
}

// Queue is an in-memory action buffer. Push never blocks on sink latency:
// overflow batches are handed off to a goroutine whose completion is joined
// by Drain, the sole point where flush failures surface.
type Queue struct {
	sink      Sink
	threshold int

	mu  sync.Mutex
	buf []Action

	flights sync.WaitGroup

	errMu    sync.Mutex
	flushErr error
}

// New creates a queue delivering to sink. A threshold of zero or less uses
// DefaultFlushThreshold.
func New(sink Sink, threshold int) *Queue {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Queue{sink: sink, threshold: threshold}
}

// Push appends an action to the buffer. When the buffer exceeds the flush
// threshold, the current contents are snapshotted and submitted to the
// sink without waiting for delivery to finish.
func (q *Queue) Push(ctx context.Context, a Action) {
	q.mu.Lock()
	q.buf = append(q.buf, a)
	if len(q.buf) <= q.threshold {
		q.mu.Unlock()
		return
	}

	batch := q.buf
	q.buf = nil
	q.mu.Unlock()

	log.Printf("queue: flushing %d actions", len(batch))

	q.flights.Add(1)
	go func() {
		defer q.flights.Done()
		if err := q.sink.Deliver(ctx, batch); err != nil {
			q.recordErr(err)
		}
	}()
}

// Len returns the number of buffered, not yet flushed actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Drain waits for in-flight overflow flushes, delivers whatever remains in
// the buffer, and returns the first error any delivery produced.
func (q *Queue) Drain(ctx context.Context) error {
	q.flights.Wait()

	q.mu.Lock()
	batch := q.buf
	q.buf = nil
	q.mu.Unlock()

	if len(batch) > 0 {
		if err := q.sink.Deliver(ctx, batch); err != nil {
			q.recordErr(err)
		}
	}

	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.flushErr
}

func (q *Queue) recordErr(err error) {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	if q.flushErr == nil {
		q.flushErr = err
	}
}
