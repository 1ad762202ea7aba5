/*
Package sqlite provides a SQLite-backed state.Persister.

PURPOSE:
  Persists the application snapshot between runs. The snapshot is stored as
  one JSON document per top-level key (employees, advances, settings, ...)
  so a partially written or older database still loads: a missing row is
  just an empty collection.

KEY TABLES:
  state_documents: key -> JSON document, plus the time it was written

ATOMIC SAVES:
  Save writes every document inside one SQL transaction. Either the whole
  snapshot is replaced or nothing is, so a crash mid-save never leaves
  advances without their installments.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The state.Store already serializes
  saves; the lock keeps direct callers (tests, tools) safe as well.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so reads of the file by
  backup tools don't block the server.

USAGE:
  db, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer db.Close()

  store, err := state.New(ctx, db)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - state/store.go: Persister interface
  - store/memory: in-memory Persister for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/state"
)

// Store implements state.Persister using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- One JSON document per snapshot key
	CREATE TABLE IF NOT EXISTS state_documents (
		key TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PERSISTER
// =============================================================================

// Load returns every stored document. An empty database gives an empty map.
func (s *Store) Load(ctx context.Context) (state.Documents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, body FROM state_documents")
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	docs := make(state.Documents)
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs[key] = body
	}
	return docs, rows.Err()
}

// Save replaces all documents in one transaction.
func (s *Store) Save(ctx context.Context, docs state.Documents) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stamp := s.now().Format(time.RFC3339Nano)
	for key, body := range docs {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO state_documents (key, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
			key, body, stamp)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return sqlTx.Commit()
}

// UpdatedAt reports when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stamp string
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM state_documents WHERE key = ?", key).Scan(&stamp)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad timestamp for %s: %w", key, err)
	}
	return t, true, nil
}
