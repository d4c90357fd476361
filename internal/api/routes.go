// Package api wires the HTTP and WebSocket surface onto a generation.Manager
// and a wsproto.Hub, adapted from the teacher's chi-routed api package.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/corvid-labs/rowgen/internal/generation"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/wsproto"
)

// Handler holds the shared resources every route needs, injected from
// app.Server at startup.
type Handler struct {
	Manager *generation.Manager
	Store   model.Store
	Hub     *wsproto.Hub
	Log     *zap.Logger

	// DefaultInference is the configured inference baseline (config.toml's
	// [inference] section resolved over model.DefaultInferenceConfig());
	// per-request fields in startGenerationRequest override it further.
	DefaultInference model.InferenceConfig
}

// Routes builds the full HTTP handler: the WebSocket upgrade route first
// (before any middleware that might wrap the response writer), then the
// logged REST surface.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/ws", h.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(LoggingMiddleware(h.Log))

		r.Route("/api/datasets/{datasetID}/generations", func(r chi.Router) {
			r.Post("/", h.handleStartGeneration)
		})
		r.Route("/api/generations/{generationID}", func(r chi.Router) {
			r.Post("/cancel", h.handleCancelGeneration)
		})
	})

	return r
}
