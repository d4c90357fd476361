// Package store implements the model.Store and model.ModelRegistry
// interfaces the row-generation engine treats as an external collaborator.
// Two backends share almost all of their SQL: a default embedded
// modernc.org/sqlite store and an alternate jackc/pgx/v5-backed postgres
// store, both managed by the same goose migrations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// placeholder renders the nth (1-indexed) bind parameter in a dialect's
// native style: "?" for sqlite, "$1"-style for postgres.
type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }
func pgPlaceholder(n int) string   { return fmt.Sprintf("$%d", n) }

// baseStore holds the SQL shared by both backends. SQLiteStore and
// PostgresStore are thin wrappers that fix the placeholder style and the
// identity-column syntax used when creating a dataset's row table.
type baseStore struct {
	db         *sql.DB
	ph         placeholder
	modelsDir  string
	autoIncDDL string // e.g. "INTEGER PRIMARY KEY AUTOINCREMENT" or "BIGSERIAL PRIMARY KEY"
}

func (s *baseStore) GetColumns(ctx context.Context, datasetID int64) ([]model.Column, error) {
	query := fmt.Sprintf(
		`SELECT id, dataset_id, name, column_type, column_type_details, rules, position
		 FROM columns WHERE dataset_id = %s ORDER BY position ASC`, s.ph(1))

	rows, err := s.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, rgerrors.Wrap(rgerrors.KindStore, "get_columns query failed", err)
	}
	defer rows.Close()

	var columns []model.Column
	for rows.Next() {
		var c model.Column
		var colType string
		if err := rows.Scan(&c.ID, &c.DatasetID, &c.Name, &colType, &c.TypeDetails, &c.Rules, &c.Position); err != nil {
			return nil, rgerrors.Wrap(rgerrors.KindStore, "get_columns scan failed", err)
		}
		c.Type = model.ColumnType(colType)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, rgerrors.Wrap(rgerrors.KindStore, "get_columns iteration failed", err)
	}
	return columns, nil
}

// AddRow ensures the dataset's row table exists, then inserts a row whose
// cells are stored as a JSON payload keyed by column id, and returns it
// with the server-assigned id and timestamps spec.md requires.
func (s *baseStore) AddRow(ctx context.Context, datasetID int64, data []model.RowData) (model.Row, error) {
	table := rowTableName(datasetID)
	if err := validateIdentifier(table); err != nil {
		return model.Row{}, err
	}

	createDDL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, table, s.autoIncDDL)
	if _, err := s.db.ExecContext(ctx, createDDL); err != nil {
		return model.Row{}, rgerrors.Wrap(rgerrors.KindStore, "create row table failed", err)
	}

	payload := make(map[string]string, len(data))
	for _, d := range data {
		payload[d.ColumnID] = d.Value
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return model.Row{}, rgerrors.Wrap(rgerrors.KindStore, "marshal row payload failed", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	insertSQL := fmt.Sprintf(`INSERT INTO %s (payload, created_at, updated_at) VALUES (%s, %s, %s)`,
		table, s.ph(1), s.ph(2), s.ph(3))

	id, err := s.insertAndReturnID(ctx, table, insertSQL, string(payloadJSON), now, now)
	if err != nil {
		return model.Row{}, err
	}

	return model.Row{ID: id, Data: data, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *baseStore) insertAndReturnID(ctx context.Context, table, insertSQL string, args ...any) (int64, error) {
	if s.ph(1) == "?" {
		res, err := s.db.ExecContext(ctx, insertSQL, args...)
		if err != nil {
			return 0, rgerrors.Wrap(rgerrors.KindStore, "insert row failed", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, rgerrors.Wrap(rgerrors.KindStore, "read inserted row id failed", err)
		}
		return id, nil
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, insertSQL+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, rgerrors.Wrap(rgerrors.KindStore, "insert row failed", err)
	}
	return id, nil
}

func (s *baseStore) GetModelInfo(ctx context.Context, modelID int64) (model.ModelDescriptor, error) {
	query := fmt.Sprintf(`SELECT filename, declared_layer_budget FROM models WHERE id = %s`, s.ph(1))

	var d model.ModelDescriptor
	var layers int64
	row := s.db.QueryRowContext(ctx, query, modelID)
	if err := row.Scan(&d.Filename, &layers); err != nil {
		if err == sql.ErrNoRows {
			return model.ModelDescriptor{}, rgerrors.New(rgerrors.KindModel, fmt.Sprintf("model %d not found", modelID))
		}
		return model.ModelDescriptor{}, rgerrors.Wrap(rgerrors.KindStore, "get_model_info query failed", err)
	}
	d.DeclaredLayerBudget = uint32(layers)
	d.Path = s.modelsDir + "/" + d.Filename
	return d, nil
}

func (s *baseStore) ModelsDir() string {
	return s.modelsDir
}
