package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/corvid-labs/rowgen/internal/hardware"
)

type startGenerationRequest struct {
	ModelID     int64   `json:"model_id"`
	RowCount    int64   `json:"rows"`
	GPULayers   uint32  `json:"gpu_layers,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

type startGenerationResponse struct {
	GenerationID string `json:"generation_id"`
}

// handleStartGeneration implements spec.md §6's generate_rows command over
// HTTP: POST /api/datasets/{datasetID}/generations.
func (h *Handler) handleStartGeneration(w http.ResponseWriter, r *http.Request) {
	datasetID, err := strconv.ParseInt(chi.URLParam(r, "datasetID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	var req startGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RowCount <= 0 {
		writeError(w, http.StatusBadRequest, "rows must be positive")
		return
	}

	cfg := h.DefaultInference
	if req.MaxTokens > 0 {
		cfg.MaxTokens = req.MaxTokens
	}
	if req.TopK > 0 {
		cfg.TopK = req.TopK
	}
	if req.TopP > 0 {
		cfg.TopP = req.TopP
	}
	if req.Temperature > 0 {
		cfg.Temperature = req.Temperature
	}

	gpuLayers := req.GPULayers
	if gpuLayers == 0 {
		gpuLayers = hardware.DetectOptimalGPULayers(h.Log)
	}

	// The worker outlives this request, so it must not inherit the request's
	// cancellation; only Cancel stops it.
	genID, err := h.Manager.Start(context.WithoutCancel(r.Context()), datasetID, req.ModelID, req.RowCount, gpuLayers, cfg, h.Hub)
	if err != nil {
		writeError(w, statusForErr(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, startGenerationResponse{GenerationID: genID})
}

// handleCancelGeneration implements spec.md §6's cancel_generation command.
func (h *Handler) handleCancelGeneration(w http.ResponseWriter, r *http.Request) {
	generationID := chi.URLParam(r, "generationID")
	if err := h.Manager.Cancel(generationID); err != nil {
		writeError(w, statusForErr(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
