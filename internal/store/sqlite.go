package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on mutations.timestamp for age audits
const currentSchemaVersion = 1

// SQLite is the default Backend, stored in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Safe to call repeatedly on the same path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
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

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts m as the newest record.
func (s *SQLite) Add(ctx context.Context, m mutation.QueuedMutation) error {
	headers, err := marshalHeaders(m.Headers)
	if err != nil {
		return fmt.Errorf("add mutation: %w", err)
	}

	var body sql.NullString
	if m.Body != nil {
		body = sql.NullString{String: *m.Body, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mutations
		(id, timestamp, url, method, headers, body, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.Timestamp,
		m.URL,
		m.Method,
		headers,
		body,
		m.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add mutation %s: %w", m.ID, ErrDuplicateID)
		}
		return fmt.Errorf("add mutation: %w", err)
	}
	return nil
}

// ListAll returns every record ordered by seq.
func (s *SQLite) ListAll(ctx context.Context) ([]mutation.QueuedMutation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, url, method, headers, body, description
		FROM mutations
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	out := []mutation.QueuedMutation{}
	for rows.Next() {
		var (
			m       mutation.QueuedMutation
			headers string
			body    sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.URL, &m.Method, &headers, &body, &m.Description); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Headers, err = unmarshalHeaders(headers)
		if err != nil {
			return nil, fmt.Errorf("mutation %s: %w", m.ID, err)
		}
		if body.Valid {
			b := body.String
			m.Body = &b
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return out, nil
}

// DeleteByID removes the record with the given id, if any.
func (s *SQLite) DeleteByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mutations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete mutation %s: %w", id, err)
	}
	return nil
}

// ClearAll removes every queued mutation. Snapshots are untouched.
func (s *SQLite) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mutations`); err != nil {
		return fmt.Errorf("clear mutations: %w", err)
	}
	return nil
}

// PutSnapshot upserts the snapshot for key.
func (s *SQLite) PutSnapshot(ctx context.Context, key string, snap mutation.Snapshot) error {
	state := string(snap.ClientState)
	if state == "" {
		state = "null"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_cache (key, timestamp, buster, client_state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			timestamp = excluded.timestamp,
			buster = excluded.buster,
			client_state = excluded.client_state
	`, key, snap.Timestamp, snap.Buster, state)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// GetSnapshot reads the snapshot for key.
func (s *SQLite) GetSnapshot(ctx context.Context, key string) (mutation.Snapshot, bool, error) {
	var (
		snap  mutation.Snapshot
		state string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp, buster, client_state FROM query_cache WHERE key = ?
	`, key).Scan(&snap.Timestamp, &snap.Buster, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return mutation.Snapshot{}, false, nil
	}
	if err != nil {
		return mutation.Snapshot{}, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	snap.ClientState = []byte(state)
	return snap, true, nil
}

// DeleteSnapshot removes the snapshot for key.
func (s *SQLite) DeleteSnapshot(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM query_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_mutations_timestamp
		ON mutations(timestamp)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
