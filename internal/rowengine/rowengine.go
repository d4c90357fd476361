// Package rowengine drives the per-row generation loop: given a row's
// sorted columns, it assembles each cell's prompt, runs it through the
// decode loop, post-processes the result, and accumulates the row as one
// atomic unit. Grounded on the original service's generate_row.
package rowengine

import (
	"context"
	"strconv"

	"github.com/corvid-labs/rowgen/internal/llm"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/postprocess"
	"github.com/corvid-labs/rowgen/internal/prng"
	"github.com/corvid-labs/rowgen/internal/prompt"
)

// CancelFunc reports whether the caller has asked to stop. The row engine
// checks it between cells, never mid-decode, so any cell in progress always
// completes before a cancellation takes effect.
type CancelFunc func() bool

// GenerateRow produces one row's worth of cells for sortedColumns, in
// order, building each cell's prompt from allColumns and the cells
// generated so far in this row. It returns context.Canceled if cancel()
// reports true before a cell starts.
func GenerateRow(
	ctx context.Context,
	eng llm.Engine,
	sortedColumns []model.Column,
	allColumns []model.Column,
	cfg model.InferenceConfig,
	src prng.Source,
	cancel CancelFunc,
) ([]model.RowData, error) {
	row := make([]model.RowData, 0, len(sortedColumns))

	for _, col := range sortedColumns {
		if cancel() {
			return nil, context.Canceled
		}

		p := prompt.Assemble(col, allColumns, row, src)

		raw, err := llm.Generate(ctx, eng, p, cfg)
		if err != nil {
			return nil, err
		}

		value, err := postprocess.Apply(col.Type, raw)
		if err != nil {
			return nil, err
		}

		row = append(row, model.RowData{ColumnID: strconv.FormatInt(col.ID, 10), Value: value})
	}

	return row, nil
}
