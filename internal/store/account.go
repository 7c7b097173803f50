package store

import "time"

// Entity identifies one of the synchronized record types. Entity names are
// also the checkpoint keys persisted per account.
type Entity string

const (
	EntityOrganizations Entity = "organizations"
	EntityPeople        Entity = "people"
	EntityMeetings      Entity = "meetings"
)

// Sync status values recorded per account and entity.
const (
	StatusSyncing = "SYNCING"
	StatusSynced  = "SYNCED"
	StatusError   = "ERROR"
)

// Account is one connected CRM portal: its OAuth tokens and the per-entity
// checkpoints of the last successful sync. The sync engine mutates tokens
// and checkpoints in memory and asks the store to persist them.
type Account struct {
	HubID           string
	AccessToken     string
	RefreshToken    string
	LastPulledDate  time.Time // account-level fallback for entities never synced
	LastPulledDates map[Entity]time.Time
}

// Checkpoint returns the last-pulled timestamp for an entity, falling back
// to the account-level date. A zero time means no prior sync.
func (a *Account) Checkpoint(e Entity) time.Time {
	if t, ok := a.LastPulledDates[e]; ok && !t.IsZero() {
		return t
	}
	return a.LastPulledDate
}

// SetCheckpoint records the last-pulled timestamp for an entity.
func (a *Account) SetCheckpoint(e Entity, t time.Time) {
	if a.LastPulledDates == nil {
		a.LastPulledDates = make(map[Entity]time.Time)
	}
	a.LastPulledDates[e] = t
}

// SyncState is one row of per-entity sync bookkeeping, exposed through the
// status API.
type SyncState struct {
	HubID        string    `json:"hub_id"`
	Entity       Entity    `json:"entity"`
	LastPulledAt time.Time `json:"last_pulled_at"`
	Status       string    `json:"status"`
	LastError    string    `json:"last_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
