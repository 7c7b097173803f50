package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists accounts and their per-entity sync state in SQLite.
type Store struct {
	DB *sql.DB
}

// Open opens or creates the account database at dbPath and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// CreateAccount inserts a new account, replacing tokens if the account
// already exists.
func (s *Store) CreateAccount(ctx context.Context, account *Account) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO accounts (hub_id, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hub_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`, account.HubID, account.AccessToken, account.RefreshToken, time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// ListAccounts loads every account together with its per-entity
// checkpoints.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT hub_id, access_token, refresh_token, last_pulled_at
		FROM accounts
		ORDER BY hub_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var a Account
		var lastPulled sql.NullInt64
		if err := rows.Scan(&a.HubID, &a.AccessToken, &a.RefreshToken, &lastPulled); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if lastPulled.Valid {
			a.LastPulledDate = time.UnixMilli(lastPulled.Int64).UTC()
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	for _, a := range accounts {
		if err := s.loadCheckpoints(ctx, a); err != nil {
			return nil, err
		}
	}

	return accounts, nil
}

func (s *Store) loadCheckpoints(ctx context.Context, account *Account) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT entity, last_pulled_at FROM sync_state WHERE hub_id = ?
	`, account.HubID)
	if err != nil {
		return fmt.Errorf("failed to query sync state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entity string
		var lastPulled sql.NullInt64
		if err := rows.Scan(&entity, &lastPulled); err != nil {
			return fmt.Errorf("failed to scan sync state: %w", err)
		}
		if lastPulled.Valid {
			account.SetCheckpoint(Entity(entity), time.UnixMilli(lastPulled.Int64).UTC())
		}
	}

	return rows.Err()
}

// SaveAccount persists the account's token fields and every checkpoint it
// currently holds, in one transaction.
func (s *Store) SaveAccount(ctx context.Context, account *Account) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	now := time.Now().UnixMilli()

	var lastPulled any
	if !account.LastPulledDate.IsZero() {
		lastPulled = account.LastPulledDate.UnixMilli()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET access_token = ?, refresh_token = ?, last_pulled_at = ?, updated_at = ?
		WHERE hub_id = ?
	`, account.AccessToken, account.RefreshToken, lastPulled, now, account.HubID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update account: %w", err)
	}

	for entity, ts := range account.LastPulledDates {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_state (hub_id, entity, last_pulled_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(hub_id, entity) DO UPDATE SET
				last_pulled_at = excluded.last_pulled_at,
				updated_at = excluded.updated_at
		`, account.HubID, string(entity), ts.UnixMilli(), now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateSyncStatus records the sync status and last error for one entity of
// an account. Checkpoints are untouched.
func (s *Store) UpdateSyncStatus(ctx context.Context, hubID string, entity Entity, status, errorMsg string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sync_state (hub_id, entity, status, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hub_id, entity) DO UPDATE SET
			status = excluded.status,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`, hubID, string(entity), status, errorMsg, time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// SyncStates returns the bookkeeping rows for every account and entity.
func (s *Store) SyncStates(ctx context.Context) ([]SyncState, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT hub_id, entity, last_pulled_at, status, last_error, updated_at
		FROM sync_state
		ORDER BY hub_id, entity
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync state: %w", err)
	}
	defer rows.Close()

	var states []SyncState
	for rows.Next() {
		var st SyncState
		var entity string
		var lastPulled, updated sql.NullInt64
		if err := rows.Scan(&st.HubID, &entity, &lastPulled, &st.Status, &st.LastError, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		st.Entity = Entity(entity)
		if lastPulled.Valid {
			st.LastPulledAt = time.UnixMilli(lastPulled.Int64).UTC()
		}
		if updated.Valid {
			st.UpdatedAt = time.UnixMilli(updated.Int64).UTC()
		}
		states = append(states, st)
	}

	return states, rows.Err()
}
