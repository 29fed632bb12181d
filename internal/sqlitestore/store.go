// Package sqlitestore implements sessionstore.Store on top of a SQLite file.
//
// Several sessions may share one database file; every row carries the id of
// the session that wrote it and a Store only ever sees its own rows.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_state (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, key)
);
`

// Store is a SQLite-backed session store.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Option configures a Store.
type Option func(*Store)

// WithSessionID resumes an existing session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(s *Store) {
		s.sessionID = id
	}
}

// Open opens (creating if needed) the database at path and starts a session.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session_state table: %w", err)
	}

	s := &Store{db: db, sessionID: uuid.NewString()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionID returns the id scoping this store's rows.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Get retrieves the value stored under key for this session.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		s.sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value stored under key for this session.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_state (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.sessionID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key for this session.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE session_id = ? AND key = ?`, s.sessionID, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Purge deletes every row written by this session.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE session_id = ?`, s.sessionID); err != nil {
		return fmt.Errorf("purge session %s: %w", s.sessionID, err)
	}
	return nil
}

// Close releases the database handle. Rows stay so the session can be resumed.
func (s *Store) Close() error {
	return s.db.Close()
}
