// Package model defines the data shapes the row-generation engine exchanges
// with its external collaborators: the tabular store, the model registry,
// and the progress sink. Nothing in this package touches inference or I/O.
package model

import "context"

// ColumnType is the set of type tags a column may declare. The engine
// dispatches cell generation by this tag; it is not a general type system.
type ColumnType string

const (
	ColumnText  ColumnType = "TEXT"
	ColumnInt   ColumnType = "INT"
	ColumnFloat ColumnType = "FLOAT"
	ColumnBool  ColumnType = "BOOL"
	ColumnJSON  ColumnType = "JSON"
)

// Column is a read-only view of a dataset column as the store reports it.
type Column struct {
	ID          int64
	DatasetID   int64
	Name        string
	Type        ColumnType
	TypeDetails string
	Rules       string
	Position    int64
}

// RowData is a single generated cell, addressed by its column's stable ID.
// Values are always strings at the storage boundary; native-type parsing is
// a downstream concern.
type RowData struct {
	ColumnID string
	Value    string
}

// Row is a persisted row as the store returns it after add_row: the
// generated cells plus server-assigned identity and timestamps.
type Row struct {
	ID        int64
	Data      []RowData
	CreatedAt string
	UpdatedAt string
}

// ModelDescriptor is what the model registry knows about a model artifact.
// The core treats the loaded model as an opaque handle keyed by Path.
type ModelDescriptor struct {
	Filename            string
	Path                string
	DeclaredLayerBudget uint32
}

// InferenceConfig holds the process-wide decode defaults; any field may be
// overridden per session.
type InferenceConfig struct {
	MaxTokens   int
	TopK        int
	TopP        float32
	Temperature float32
	BatchSize   int
	ContextSize uint32
	AddBOS      bool
}

// DefaultInferenceConfig matches spec.md §3.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		MaxTokens:   256,
		TopK:        40,
		TopP:        0.90,
		Temperature: 0.8,
		BatchSize:   512,
		ContextSize: 2048,
		AddBOS:      true,
	}
}

// Store is the read/write surface the row-generation engine requires from
// the external tabular store. It is intentionally narrow: the core never
// needs more than this to produce and persist rows.
type Store interface {
	GetColumns(ctx context.Context, datasetID int64) ([]Column, error)
	AddRow(ctx context.Context, datasetID int64, data []RowData) (Row, error)
}

// ModelRegistry is the read surface the engine requires to resolve a model
// ID to an on-disk artifact.
type ModelRegistry interface {
	GetModelInfo(ctx context.Context, modelID int64) (ModelDescriptor, error)
	ModelsDir() string
}

// ProgressEvent mirrors spec.md §6's emit("generation-progress", ...) payload.
type ProgressEvent struct {
	DatasetID    int64
	GenerationID string
	Row          Row
	Completed    int64
	Target       int64
	Status       string
}

// StatusEvent mirrors spec.md §6's emit("generation-status", ...) payload.
// Status is one of "started", "completed", "cancelled", "failed".
type StatusEvent struct {
	GenerationID string
	Status       string
	Message      string
}

// ProgressSink is the opaque callback the host hands to a generation
// session at start time. Implementations must be safe to call repeatedly
// from the session's worker goroutine; the core never calls it concurrently
// with itself for a given session.
type ProgressSink interface {
	EmitProgress(ProgressEvent)
	EmitStatus(StatusEvent)
}

// ProgressSinkFunc adapts two plain functions into a ProgressSink, the way
// the original host process wires a single opaque emit() callback.
type ProgressSinkFunc struct {
	OnProgress func(ProgressEvent)
	OnStatus   func(StatusEvent)
}

func (f ProgressSinkFunc) EmitProgress(e ProgressEvent) {
	if f.OnProgress != nil {
		f.OnProgress(e)
	}
}

func (f ProgressSinkFunc) EmitStatus(e StatusEvent) {
	if f.OnStatus != nil {
		f.OnStatus(e)
	}
}
