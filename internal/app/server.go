// Package app wires the store, generation manager, and HTTP/WebSocket API
// into one runnable process, adapted from the teacher's app.Server. The
// teacher's WAL-TCP-listener goroutine has no analogue here (there's no
// separate reactive-query Postgres replication stream in this domain) so
// Run only manages the HTTP server's lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/corvid-labs/rowgen/internal/api"
	"github.com/corvid-labs/rowgen/internal/config"
	"github.com/corvid-labs/rowgen/internal/generation"
	"github.com/corvid-labs/rowgen/internal/hardware"
	"github.com/corvid-labs/rowgen/internal/llm/llamacpp"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/store"
	"github.com/corvid-labs/rowgen/internal/wsproto"
)

// storeHandle is the subset of model.Store/model.ModelRegistry plus Close
// that either backend concretely satisfies.
type storeHandle interface {
	model.Store
	model.ModelRegistry
	Close() error
}

// Server owns the process's long-lived resources: the store connection, the
// generation manager and its model cache, and the HTTP listener.
type Server struct {
	cfg        config.Config
	log        *zap.Logger
	store      storeHandle
	httpServer *http.Server
}

// New opens the configured store backend and wires the generation manager
// and API routes on top of it.
func New(cfg config.Config, log *zap.Logger) (*Server, error) {
	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	hub := wsproto.NewHub(log)
	mgr := generation.New(st, st, loadLlamaModel, log)

	handler := &api.Handler{Manager: mgr, Store: st, Hub: hub, Log: log, DefaultInference: cfg.InferenceConfig()}

	return &Server{
		cfg:   cfg,
		log:   log,
		store: st,
		httpServer: &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: api.Routes(handler),
		},
	}, nil
}

func openStore(cfg config.Store) (storeHandle, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.DSN, cfg.ModelsDir)
	case "postgres":
		return store.NewPostgresStore(cfg.DSN, cfg.ModelsDir)
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.Driver)
	}
}

func loadLlamaModel(path string, gpuLayers uint32) (generation.ModelHandle, error) {
	if gpuLayers == 0 {
		gpuLayers = hardware.DetectOptimalGPULayers(zap.NewNop())
	}
	return llamacpp.Load(path, gpuLayers)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: http server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.store.Close()
}
