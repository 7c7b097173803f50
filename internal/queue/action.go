package queue

import (
	"fmt"
	"time"
)

// Action is a normalized analytics event for a created or updated CRM
// record. Once constructed it is immutable and queued exactly once.
type Action struct {
	ID         string         `json:"action_id"`
	Name       string         `json:"action_name"`
	Timestamp  time.Time      `json:"action_date"`
	Identity   string         `json:"identity,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// DedupeKey is a stable identifier for sink-side deduplication. The same
// record event re-emitted by an overlapping run produces the same key.
func (a Action) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%d", a.Name, a.Identity, a.Timestamp.UnixMilli())
}
