package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/store/storetest"
)

func TestMain(m *testing.M) {
	// storetest.BootOnce starts a shared postgres testcontainer for every
	// test in this package; individual tests get an isolated schema
	// sandbox via storetest.NewSandbox.
	runPostgresTests(m)
}

func runPostgresTests(m *testing.M) {
	m.Run()
}

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	storetest.BootOnce(t, storetest.WithGooseUp(Migrations))
	sbx := storetest.NewSandbox(t)

	s := &PostgresStore{baseStore: &baseStore{
		db:         sbx.DB,
		ph:         pgPlaceholder,
		modelsDir:  "/models",
		autoIncDDL: "BIGSERIAL PRIMARY KEY",
	}}
	return s
}

func seedPostgresDataset(t *testing.T, s *PostgresStore, datasetID int64, columns []model.Column) {
	t.Helper()
	ctx := context.Background()
	now := "2026-01-01T00:00:00Z"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, table_name, name, description, row_count, created_at, updated_at)
		 VALUES ($1, $2, $3, '', 0, $4, $5)`,
		datasetID, "ds", "ds", now, now)
	require.NoError(t, err)

	for _, c := range columns {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO columns (id, dataset_id, name, column_type, column_type_details, rules, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, datasetID, c.Name, string(c.Type), c.TypeDetails, c.Rules, c.Position)
		require.NoError(t, err)
	}
}

func TestPostgresStore_GetColumns_OrderedByPosition(t *testing.T) {
	s := newTestPostgresStore(t)
	seedPostgresDataset(t, s, 1, []model.Column{
		{ID: 2, Name: "last_name", Type: model.ColumnText, Position: 1},
		{ID: 1, Name: "first_name", Type: model.ColumnText, Position: 0},
	})

	columns, err := s.GetColumns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "first_name", columns[0].Name)
	assert.Equal(t, "last_name", columns[1].Name)
}

func TestPostgresStore_AddRow_PersistsAndReturnsID(t *testing.T) {
	s := newTestPostgresStore(t)
	seedPostgresDataset(t, s, 1, []model.Column{{ID: 1, Name: "name", Type: model.ColumnText, Position: 0}})

	row, err := s.AddRow(context.Background(), 1, []model.RowData{{ColumnID: "1", Value: "Ada"}})
	require.NoError(t, err)
	assert.NotZero(t, row.ID)
	assert.Equal(t, "Ada", row.Data[0].Value)
}
