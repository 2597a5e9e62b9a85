package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DirName is the engine-owned directory inside the ledger's data
// directory.
const DirName = "event_store_sqlite"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the store under
// dataDir/event_store_sqlite/store.db.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("eventstore: create store directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "store.db"))
	if err != nil {
		return nil, fmt.Errorf("eventstore: open sqlite: %w", err)
	}
	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an existing database handle and runs the migration.
// Exposed for tests that inject a handle.
func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("eventstore: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		body     BLOB NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Put stores the body for an event id. A repeated put for the same id
// overwrites; bodies are immutable so the overwrite is always a no-op in
// content.
func (s *SQLiteStore) Put(ctx context.Context, eventID string, body []byte) error {
	if eventID == "" {
		return fmt.Errorf("eventstore: event id cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, body) VALUES (?, ?)
		 ON CONFLICT(event_id) DO UPDATE SET body = excluded.body`,
		eventID, body,
	)
	if err != nil {
		return fmt.Errorf("eventstore: put %s: %w", eventID, err)
	}
	return nil
}

// Get returns the body for an event id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, eventID string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM events WHERE event_id = ?`, eventID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: get %s: %w", eventID, err)
	}
	return body, nil
}

// Has reports whether a body exists for the event id.
func (s *SQLiteStore) Has(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE event_id = ?`, eventID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("eventstore: has %s: %w", eventID, err)
	}
	return true, nil
}

// Iterate streams every (eventID, body) pair to fn in event-id order.
func (s *SQLiteStore) Iterate(ctx context.Context, fn func(eventID string, body []byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, body FROM events ORDER BY event_id`)
	if err != nil {
		return fmt.Errorf("eventstore: iterate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var eventID string
		var body []byte
		if err := rows.Scan(&eventID, &body); err != nil {
			return fmt.Errorf("eventstore: iterate scan: %w", err)
		}
		if err := fn(eventID, body); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("eventstore: iterate: %w", err)
	}
	return nil
}

// Len returns the number of stored bodies.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("eventstore: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
