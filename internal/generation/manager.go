// Package generation implements the Generation Manager: it registers
// active generation sessions with cancellation handles, drives the
// per-row loop, forwards progress to a sink, and handles cancellation
// cooperatively, grounded on the original service's GenerationService.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/corvid-labs/rowgen/internal/llm"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/modelcache"
	"github.com/corvid-labs/rowgen/internal/prng"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
	"github.com/corvid-labs/rowgen/internal/rowengine"
	"github.com/corvid-labs/rowgen/internal/sorter"
)

// rowRandomSource gives each generation session its own randomness stream,
// independent of any other concurrent session.
func rowRandomSource() prng.Source {
	return prng.NewUnseeded()
}

// ModelHandle is a loaded model capable of building inference engines. It
// satisfies modelcache.Handle so the cache can evict and close it without
// knowing about engines at all.
type ModelHandle interface {
	NewEngine(cfg model.InferenceConfig) (llm.Engine, error)
	Close() error
}

// LoadParams is the modelcache "params" payload this package's Loader
// expects: the layer budget resolved at Start time.
type LoadParams struct {
	GPULayers uint32
}

// LoadModelFunc loads a model artifact from disk into a ModelHandle.
type LoadModelFunc func(path string, gpuLayers uint32) (ModelHandle, error)

type session struct {
	id        string
	cancelled atomic.Bool
}

// Manager drives generation sessions against a store, a model registry,
// and a bounded model cache shared across all sessions.
type Manager struct {
	store     model.Store
	registry  model.ModelRegistry
	cache     *modelcache.Cache
	loadModel LoadModelFunc
	log       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
	seq      int64
}

// New constructs a Manager. loadModel is injected so tests can swap in the
// fake engine instead of a real llama.cpp model.
func New(store model.Store, registry model.ModelRegistry, loadModel LoadModelFunc, log *zap.Logger) *Manager {
	m := &Manager{
		store:     store,
		registry:  registry,
		loadModel: loadModel,
		log:       log,
		sessions:  make(map[string]*session),
	}
	m.cache = modelcache.New(func(path string, params any) (modelcache.Handle, error) {
		p, _ := params.(LoadParams)
		return m.loadModel(path, p.GPULayers)
	})
	return m
}

// Start registers a new session and spawns its worker goroutine, returning
// immediately with the generation id.
func (m *Manager) Start(
	ctx context.Context,
	datasetID, modelID int64,
	targetCount int64,
	gpuLayers uint32,
	cfg model.InferenceConfig,
	sink model.ProgressSink,
) (string, error) {
	genID := m.nextID(datasetID)

	sess := &session{id: genID}
	m.mu.Lock()
	m.sessions[genID] = sess
	m.mu.Unlock()

	go m.run(ctx, sess, datasetID, modelID, targetCount, gpuLayers, cfg, sink)

	return genID, nil
}

// Cancel flips the session's cancel flag. It is idempotent while the
// session is registered; an unknown session, including one whose worker has
// already finished and unregistered it, fails with a not-found error
// reported under KindCancelled.
func (m *Manager) Cancel(generationID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[generationID]
	m.mu.Unlock()
	if !ok {
		return rgerrors.New(rgerrors.KindCancelled, fmt.Sprintf("generation %s not found", generationID))
	}
	sess.cancelled.Store(true)
	return nil
}

func (m *Manager) nextID(datasetID int64) string {
	m.mu.Lock()
	m.seq++
	n := m.seq
	m.mu.Unlock()
	return fmt.Sprintf("gen_%d_%d", datasetID, time.Now().UnixMilli()+n)
}

func (m *Manager) unregister(generationID string) {
	m.mu.Lock()
	delete(m.sessions, generationID)
	m.mu.Unlock()
}

func (m *Manager) run(
	ctx context.Context,
	sess *session,
	datasetID, modelID int64,
	targetCount int64,
	gpuLayers uint32,
	cfg model.InferenceConfig,
	sink model.ProgressSink,
) {
	log := m.log.With(zap.String("generation_id", sess.id), zap.Int64("dataset_id", datasetID))
	defer m.unregister(sess.id)

	sink.EmitStatus(model.StatusEvent{GenerationID: sess.id, Status: "started"})

	columns, err := m.store.GetColumns(ctx, datasetID)
	if err != nil {
		m.fail(sink, sess.id, "fetching columns", err, log)
		return
	}

	sortedColumns, err := sorter.ByDependency(columns)
	if err != nil {
		m.fail(sink, sess.id, "sorting columns", err, log)
		return
	}

	descriptor, err := m.registry.GetModelInfo(ctx, modelID)
	if err != nil {
		m.fail(sink, sess.id, "fetching model info", err, log)
		return
	}

	handle, err := m.cache.GetOrLoad(descriptor.Path, LoadParams{GPULayers: gpuLayers})
	if err != nil {
		m.fail(sink, sess.id, "loading model", err, log)
		return
	}
	defer m.cache.Release(descriptor.Path)

	modelHandle := handle.(ModelHandle)
	eng, err := modelHandle.NewEngine(cfg)
	if err != nil {
		m.fail(sink, sess.id, "creating inference context", err, log)
		return
	}
	defer eng.Close()

	src := rowRandomSource()

	for i := int64(0); i < targetCount; i++ {
		if sess.cancelled.Load() {
			sink.EmitStatus(model.StatusEvent{GenerationID: sess.id, Status: "cancelled"})
			return
		}

		rowData, err := rowengine.GenerateRow(ctx, eng, sortedColumns, columns, cfg, src, sess.cancelled.Load)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				sink.EmitStatus(model.StatusEvent{GenerationID: sess.id, Status: "cancelled"})
				return
			}
			m.fail(sink, sess.id, fmt.Sprintf("generating row %d", i+1), err, log)
			return
		}

		persisted, err := m.store.AddRow(ctx, datasetID, rowData)
		if err != nil {
			m.fail(sink, sess.id, "persisting row", err, log)
			return
		}

		sink.EmitProgress(model.ProgressEvent{
			DatasetID:    datasetID,
			GenerationID: sess.id,
			Row:          persisted,
			Completed:    i + 1,
			Target:       targetCount,
			Status:       "generating",
		})

		log.Debug("row generated", rowFields(
			zap.Int64("row_id", persisted.ID),
			zap.Int64("completed", i+1),
			zap.Int64("target", targetCount),
		))
	}

	sink.EmitStatus(model.StatusEvent{GenerationID: sess.id, Status: "completed"})
}

// rowFields groups a row-completion log line's fields under a single
// "row" object field, keeping the per-row debug line from spreading across
// many top-level keys.
func rowFields(fields ...zap.Field) zap.Field {
	return zap.Object("row", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}

func (m *Manager) fail(sink model.ProgressSink, genID, stage string, err error, log *zap.Logger) {
	log.Error("generation failed", zap.String("stage", stage), zap.Error(err))
	sink.EmitStatus(model.StatusEvent{GenerationID: genID, Status: "failed", Message: fmt.Sprintf("%s: %v", stage, err)})
}
