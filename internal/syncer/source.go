package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	"github.com/Martian-dev/crm-sync-infra/internal/queue"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

// Source is the per-entity contract driven by the shared sync loop: which
// remote object to search, which properties to pull, which property the
// date window filters on, and how a page of records becomes actions.
type Source interface {
	Entity() store.Entity
	ObjectType() string
	Properties() []string
	DateProperty() string

	// BuildActions turns one fetched page into zero or more actions,
	// classifying each record against the checkpoint of the run. Enrichment
	// lookups happen here.
	BuildActions(ctx context.Context, records []hubspot.Record, checkpoint time.Time) ([]queue.Action, error)
}

// classify decides Created vs Updated for a record: created when its
// creation instant is strictly after the prior checkpoint, or when there
// was no prior checkpoint. Returns the verb and the action instant.
func classify(r hubspot.Record, checkpoint time.Time) (string, time.Time) {
	if checkpoint.IsZero() || r.CreatedAt.After(checkpoint) {
		return "Created", r.CreatedAt
	}
	return "Updated", r.UpdatedAt
}

// newAction assembles an immutable action with a fresh ID.
func newAction(name string, ts time.Time, identity string, props map[string]any) queue.Action {
	return queue.Action{
		ID:         uuid.NewString(),
		Name:       name,
		Timestamp:  ts,
		Identity:   identity,
		Properties: props,
	}
}

// putNonEmpty adds a property unless its value is blank. Null property
// values decode to empty strings at the API boundary, so this is where
// null-valued keys get stripped from action property bags.
func putNonEmpty(props map[string]any, key, value string) {
	if value != "" {
		props[key] = value
	}
}
