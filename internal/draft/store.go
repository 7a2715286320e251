// Package draft persists autosaved assessment snapshots to a local
// sqlite database. It stands behind the same narrow interface a remote
// autosave service would: save a payload, list what was saved, fetch the
// latest snapshot to resume from.
package draft

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Snapshot is one autosaved assessment payload.
type Snapshot struct {
	ID           string
	SessionToken string
	InstrumentID string
	InstrumentV  string
	Seq          int64
	Payload      []byte
	SavedAt      string
}

// Store provides durable storage for draft snapshots.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a sqlite database at the given path, applying
// pragmas and the schema. Idempotent: safe to call on an existing
// database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under autosave bursts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save appends one snapshot and returns its generated id.
func (s *Store) Save(ctx context.Context, sessionToken, instrumentID, instrumentVersion string, seq int64, payload []byte) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, session_token, instrument_id, instrument_ver, seq, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionToken, instrumentID, instrumentVersion, seq, payload)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	return id, nil
}

// Latest returns the most recent snapshot for a session, or sql.ErrNoRows
// wrapped when none exists.
func (s *Store) Latest(ctx context.Context, sessionToken string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_token, instrument_id, instrument_ver, seq, payload, saved_at
		 FROM snapshots WHERE session_token = ? ORDER BY seq DESC LIMIT 1`,
		sessionToken)
	snap := &Snapshot{}
	err := row.Scan(&snap.ID, &snap.SessionToken, &snap.InstrumentID, &snap.InstrumentV, &snap.Seq, &snap.Payload, &snap.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns a session's snapshots in save order.
func (s *Store) List(ctx context.Context, sessionToken string) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_token, instrument_id, instrument_ver, seq, payload, saved_at
		 FROM snapshots WHERE session_token = ? ORDER BY seq ASC`,
		sessionToken)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.SessionToken, &snap.InstrumentID, &snap.InstrumentV, &snap.Seq, &snap.Payload, &snap.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
