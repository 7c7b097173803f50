package natsjs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Martian-dev/crm-sync-infra/internal/queue"
)

// StreamName holds every action emitted by the sync engine.
const StreamName = "CRM_ACTIONS"

// Publisher wraps NATS JetStream as the downstream action sink.
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS and opens a JetStream context.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// EnsureStream ensures the CRM_ACTIONS stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	streamInfo, err := p.js.StreamInfo(StreamName)
	if err == nil && streamInfo != nil {
		return nil
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{"crm.actions.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     30 * 24 * time.Hour,
	})

	if err != nil {
		if err == nats.ErrStreamNameAlreadyInUse || err.Error() == "stream name already in use" {
			return nil
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Deliver publishes one message per action, preserving batch order. The
// dedupe key rides as the JetStream message ID so overlapping sync windows
// inside the duplicate window collapse server-side.
func (p *Publisher) Deliver(ctx context.Context, batch []queue.Action) error {
	for _, a := range batch {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode action: %w", err)
		}

		_, err = p.js.Publish(subjectFor(a), payload, nats.MsgId(a.DedupeKey()), nats.Context(ctx))
		if err != nil {
			return fmt.Errorf("failed to publish action: %w", err)
		}
	}
	return nil
}

// subjectFor maps "Organization Created" to "crm.actions.organization.created".
func subjectFor(a queue.Action) string {
	name := strings.ToLower(strings.ReplaceAll(a.Name, " ", "."))
	return "crm.actions." + name
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
