package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default, embeddable store backend: a single file (or
// :memory:) database with no external service to run.
type SQLiteStore struct {
	*baseStore
}

// NewSQLiteStore opens (creating if necessary) a sqlite database at path
// and wires it up as a Store/ModelRegistry. Callers are expected to run
// goose migrations against the same path beforehand (see cmd/rowgend
// migrate).
func NewSQLiteStore(path, modelsDir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store at %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{baseStore: &baseStore{
		db:         db,
		ph:         sqlitePlaceholder,
		modelsDir:  modelsDir,
		autoIncDDL: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
