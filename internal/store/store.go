// Package store is the persistence collaborator for the mapping core: a
// SQLite-backed object store holding live records in memory and flushing them
// to disk on Save. Thread affinity is the caller's concern; a Store and its
// records belong to one goroutine at a time.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Store owns the database handle and the registry of live records.
type Store struct {
	db    *sql.DB
	model *schema.Model
	log   *zap.SugaredLogger

	// live records by id, including unsaved inserts and pending deletes.
	records map[string]*Record
}

// Open creates or opens a SQLite object store at the given path and binds it
// to a resolved data model. Pragmas and the table layout are applied
// idempotently, so reopening an existing store is always safe.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string, model *schema.Model, log *zap.SugaredLogger) (*Store, error) {
	if model == nil {
		return nil, fmt.Errorf("open store: nil model")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:      db,
		model:   model,
		log:     log,
		records: make(map[string]*Record),
	}, nil
}

// Close closes the database connection. Unsaved changes are discarded.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Model returns the data model the store was opened with.
func (s *Store) Model() *schema.Model {
	return s.model
}

// Reset discards every live record, saved or not. The caller is expected to
// clear any mapping cache alongside, since a reset usually accompanies a
// schema change.
func (s *Store) Reset() {
	s.records = make(map[string]*Record)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
