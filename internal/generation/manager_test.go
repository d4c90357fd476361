package generation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/corvid-labs/rowgen/internal/llm"
	"github.com/corvid-labs/rowgen/internal/llm/fake"
	"github.com/corvid-labs/rowgen/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	columns []model.Column
	rows    []model.Row
	nextID  int64
	failAdd bool
}

func (s *memStore) GetColumns(ctx context.Context, datasetID int64) ([]model.Column, error) {
	return s.columns, nil
}

func (s *memStore) AddRow(ctx context.Context, datasetID int64, data []model.RowData) (model.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd {
		return model.Row{}, assert.AnError
	}
	s.nextID++
	row := model.Row{ID: s.nextID, Data: data}
	s.rows = append(s.rows, row)
	return row, nil
}

type memRegistry struct {
	descriptor model.ModelDescriptor
}

func (r *memRegistry) GetModelInfo(ctx context.Context, modelID int64) (model.ModelDescriptor, error) {
	return r.descriptor, nil
}

func (r *memRegistry) ModelsDir() string { return "/models" }

type fakeModelHandle struct {
	seed int64
}

func (h *fakeModelHandle) NewEngine(cfg model.InferenceConfig) (llm.Engine, error) {
	return fake.New(h.seed), nil
}

func (h *fakeModelHandle) Close() error { return nil }

type collectingSink struct {
	mu       sync.Mutex
	progress []model.ProgressEvent
	statuses []model.StatusEvent
}

func (s *collectingSink) EmitProgress(e model.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, e)
}

func (s *collectingSink) EmitStatus(e model.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, e)
}

func (s *collectingSink) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1].Status
}

func (s *collectingSink) progressCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.progress)
}

func newTestManager(t *testing.T, store *memStore, registry *memRegistry) *Manager {
	loadModel := func(path string, gpuLayers uint32) (ModelHandle, error) {
		return &fakeModelHandle{seed: 42}, nil
	}
	return New(store, registry, loadModel, zaptest.NewLogger(t))
}

func waitForTerminal(t *testing.T, sink *collectingSink) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		switch sink.lastStatus() {
		case "completed", "cancelled", "failed":
			return sink.lastStatus()
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("generation did not reach a terminal status in time")
	return ""
}

func TestManager_Start_RunsToCompletion(t *testing.T) {
	store := &memStore{columns: []model.Column{
		{ID: 1, Name: "first_name", Type: model.ColumnText, Rules: "a first name"},
	}}
	registry := &memRegistry{descriptor: model.ModelDescriptor{Path: "/models/test.gguf"}}
	m := newTestManager(t, store, registry)
	sink := &collectingSink{}

	genID, err := m.Start(context.Background(), 1, 1, 3, 20, model.DefaultInferenceConfig(), sink)
	require.NoError(t, err)
	assert.NotEmpty(t, genID)

	status := waitForTerminal(t, sink)
	assert.Equal(t, "completed", status)
	assert.Equal(t, 3, sink.progressCount())

	m.mu.Lock()
	_, stillRegistered := m.sessions[genID]
	m.mu.Unlock()
	assert.False(t, stillRegistered, "session should unregister itself on completion")
}

func TestManager_Cancel_StopsBeforeTarget(t *testing.T) {
	store := &memStore{columns: []model.Column{
		{ID: 1, Name: "first_name", Type: model.ColumnText, Rules: "a first name"},
	}}
	registry := &memRegistry{descriptor: model.ModelDescriptor{Path: "/models/test.gguf"}}
	m := newTestManager(t, store, registry)
	sink := &collectingSink{}

	genID, err := m.Start(context.Background(), 1, 1, 1000000, 20, model.DefaultInferenceConfig(), sink)
	require.NoError(t, err)

	require.NoError(t, m.Cancel(genID))

	status := waitForTerminal(t, sink)
	assert.Equal(t, "cancelled", status)
	assert.Less(t, sink.progressCount(), 1000000)
}

func TestManager_Cancel_UnknownSessionFails(t *testing.T) {
	m := newTestManager(t, &memStore{}, &memRegistry{})
	err := m.Cancel("gen_does_not_exist")
	assert.Error(t, err)
}

func TestManager_Start_PropagatesAddRowFailureAsFailedStatus(t *testing.T) {
	store := &memStore{
		columns: []model.Column{{ID: 1, Name: "x", Type: model.ColumnText, Rules: "x"}},
		failAdd: true,
	}
	registry := &memRegistry{descriptor: model.ModelDescriptor{Path: "/models/test.gguf"}}
	m := newTestManager(t, store, registry)
	sink := &collectingSink{}

	_, err := m.Start(context.Background(), 1, 1, 2, 20, model.DefaultInferenceConfig(), sink)
	require.NoError(t, err)

	status := waitForTerminal(t, sink)
	assert.Equal(t, "failed", status)
}
