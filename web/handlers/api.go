package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stridehq/driftwatch/internal/engine"
	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/internal/vector"
	"github.com/stridehq/driftwatch/pkg/types"
)

// HealthChecker reports embedding backend reachability and the state
// of its circuit breaker.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	CircuitState() string
}

// DriftHandlers contains the HTTP handlers for the REST API.
type DriftHandlers struct {
	predictor *engine.Predictor
	store     storage.EventStore
	index     vector.Index
	patterns  *engine.PatternAnalyzer
	hub       *WebSocketHub
	health    HealthChecker
}

// NewDriftHandlers creates the handler set. patterns, hub, and health
// may be nil; the corresponding features degrade quietly.
func NewDriftHandlers(predictor *engine.Predictor, store storage.EventStore, index vector.Index, patterns *engine.PatternAnalyzer, hub *WebSocketHub, health HealthChecker) *DriftHandlers {
	return &DriftHandlers{
		predictor: predictor,
		store:     store,
		index:     index,
		patterns:  patterns,
		hub:       hub,
		health:    health,
	}
}

// PredictDrift handles POST /api/predict/{owner} - run the full drift
// prediction pipeline for one user.
func (h *DriftHandlers) PredictDrift(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required", nil)
		return
	}
	timeframe := parseInt(r.URL.Query().Get("timeframe_days"), 0)
	if timeframe < 0 {
		respondError(w, http.StatusBadRequest, "timeframe_days must be non-negative", nil)
		return
	}

	pred, err := h.predictor.PredictDrift(r.Context(), owner, timeframe)
	if err != nil {
		respondStorageError(w, "prediction failed", err)
		return
	}

	if h.hub != nil && pred.Level.Rank() >= types.RiskHigh.Rank() {
		h.hub.BroadcastAlert(DriftAlert{
			Type:        "drift_prediction",
			OwnerID:     owner,
			RiskLevel:   string(pred.Level),
			Probability: pred.Probability,
			Message:     fmt.Sprintf("Drift risk for %s is %s", owner, pred.Level),
		})
	}
	respondJSON(w, http.StatusOK, pred)
}

// BatchPredictRequest is the request body for POST /api/predict.
type BatchPredictRequest struct {
	OwnerIDs      []string `json:"owner_ids"`
	TimeframeDays int      `json:"timeframe_days,omitempty"`
}

// BatchPredictResult is one user's entry in the batch response.
type BatchPredictResult struct {
	Prediction *engine.Prediction `json:"prediction,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// PredictBatch handles POST /api/predict - run predictions for many
// users. Failures are reported per user; the batch itself always
// succeeds.
func (h *DriftHandlers) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if len(req.OwnerIDs) == 0 {
		respondError(w, http.StatusBadRequest, "owner_ids is required", nil)
		return
	}
	if len(req.OwnerIDs) > 100 {
		respondError(w, http.StatusBadRequest, "at most 100 owners per batch", nil)
		return
	}

	results := h.predictor.PredictBatch(r.Context(), req.OwnerIDs, req.TimeframeDays)
	out := make(map[string]BatchPredictResult, len(results))
	for owner, res := range results {
		entry := BatchPredictResult{Prediction: res.Prediction}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		out[owner] = entry
	}
	respondJSON(w, http.StatusOK, out)
}

// MonitorRealtime handles GET /api/monitor/{owner} - the lightweight
// last-24-hour drift check.
func (h *DriftHandlers) MonitorRealtime(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required", nil)
		return
	}

	report, err := h.predictor.MonitorRealtime(r.Context(), owner)
	if err != nil {
		respondStorageError(w, "realtime monitoring failed", err)
		return
	}

	if h.hub != nil && len(report.Interventions) > 0 {
		h.hub.BroadcastAlert(DriftAlert{
			Type:        "realtime_alert",
			OwnerID:     owner,
			Probability: report.ImmediateRisk,
			Message:     fmt.Sprintf("Immediate drift risk for %s at %.0f%%", owner, report.ImmediateRisk*100),
		})
	}
	respondJSON(w, http.StatusOK, report)
}

// AnalyzeTrends handles GET /api/trends/{owner} - analyze a user's
// assessment history. The lookback window is set with ?weeks=N.
func (h *DriftHandlers) AnalyzeTrends(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required", nil)
		return
	}
	weeks := parseInt(r.URL.Query().Get("weeks"), 0)

	report, err := h.predictor.AnalyzeTrends(r.Context(), owner, weeks)
	if err != nil {
		respondStorageError(w, "trend analysis failed", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// IngestEvent handles POST /api/events - store one behavioral event
// and index it into the owner's pattern partition.
func (h *DriftHandlers) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	event := req.ToEvent()
	if err := event.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event", err)
		return
	}

	if err := h.store.StoreEvent(r.Context(), event); err != nil {
		respondStorageError(w, "failed to store event", err)
		return
	}

	indexed := false
	if h.patterns != nil {
		if err := h.patterns.IndexEvents(r.Context(), []types.Event{*event}); err == nil {
			indexed = true
		}
		// Pattern indexing is best effort: the event is stored either way.
	}

	respondJSON(w, http.StatusCreated, IngestResponse{ID: event.ID, Indexed: indexed})
}

// VectorStats handles GET /api/vectors/stats - similarity store totals.
func (h *DriftHandlers) VectorStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.index.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read vector stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// DeleteVectors handles DELETE /api/vectors/{owner} - tombstone every
// stored pattern for one owner.
func (h *DriftHandlers) DeleteVectors(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required", nil)
		return
	}
	deleted, err := h.index.Delete(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete vectors", err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteVectorsResponse{OwnerID: owner, Deleted: deleted})
}

// Health handles GET /api/health.
func (h *DriftHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Embedder:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Embedder = "unavailable"
		}
		resp.Breaker = h.health.CircuitState()
	}
	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, resp)
}

// Helper functions

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more we can do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

// respondStorageError maps the storage error taxonomy to HTTP codes:
// invalid input is the caller's fault, unavailable data is upstream's.
func respondStorageError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, storage.ErrDataUnavailable):
		respondError(w, http.StatusServiceUnavailable, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}
