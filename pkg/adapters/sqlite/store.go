// Package sqlite persists editor sessions in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/dotmap/pkg/domain"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// DefaultFile is the database file name used inside the base directory.
const DefaultFile = "dotmap.db"

// Store implements ports.SessionStore on top of SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := UserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sessions (
		  id            TEXT PRIMARY KEY,
		  mode          TEXT NOT NULL,
		  snapshot_json TEXT NOT NULL,
		  dots          INTEGER NOT NULL,
		  connections   INTEGER NOT NULL,
		  updated_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated
		ON sessions(updated_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	if version < 2 {
		if _, err := db.Exec(`ALTER TABLE sessions ADD COLUMN sealed TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 2)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

// UserVersion returns the current schema version (user_version pragma).
func UserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// DB exposes the handle for maintenance commands and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Save upserts the session row.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	updated := session.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, mode, snapshot_json, dots, connections, updated_at, sealed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  mode = excluded.mode,
		  snapshot_json = excluded.snapshot_json,
		  dots = excluded.dots,
		  connections = excluded.connections,
		  updated_at = excluded.updated_at,
		  sealed = excluded.sealed`,
		session.ID, string(session.Mode), string(data),
		len(session.Snapshot.Dots), len(session.Snapshot.Connections),
		updated.UnixNano(), session.Sealed,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads one session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		mode    string
		payload string
		updated int64
		sealed  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, snapshot_json, updated_at, sealed FROM sessions WHERE id = ?`, sessionID,
	).Scan(&mode, &payload, &updated, &sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session := &domain.Session{
		ID:        sessionID,
		Mode:      domain.Mode(mode),
		UpdatedAt: time.Unix(0, updated).UTC(),
		Sealed:    sealed,
	}
	if err := json.Unmarshal([]byte(payload), &session.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return session, nil
}

// Delete removes the session row.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns session ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
