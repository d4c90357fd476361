package store

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore is the alternate, networked store backend for deployments
// that want a shared database rather than an embedded file.
type PostgresStore struct {
	*baseStore
}

// NewPostgresStore opens a pgx/v5 connection pool against dsn. Callers are
// expected to run goose migrations against the same database beforehand.
func NewPostgresStore(dsn, modelsDir string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	return &PostgresStore{baseStore: &baseStore{
		db:         db,
		ph:         pgPlaceholder,
		modelsDir:  modelsDir,
		autoIncDDL: "BIGSERIAL PRIMARY KEY",
	}}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
