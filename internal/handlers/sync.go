package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/storage"
	syncengine "workitems-ai/internal/sync"
)

// Syncer runs one synchronization pass. Implemented by sync.Engine.
type Syncer interface {
	Sync(ctx context.Context, opts syncengine.Options) (*syncengine.Result, error)
}

// SyncHandler handles HTTP requests to trigger a sync run. Concurrent
// requests are rejected: the engine requires runs against the same index to
// be serialized.
type SyncHandler struct {
	engine Syncer
	runs   storage.RunStore

	mu sync.Mutex
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(engine Syncer, runs storage.RunStore) *SyncHandler {
	return &SyncHandler{
		engine: engine,
		runs:   runs,
	}
}

// SyncRequest represents the HTTP request payload for a sync run.
type SyncRequest struct {
	ForceFull bool `json:"force_full,omitempty"`
	// BatchSize overrides the configured batch size for this run; zero
	// keeps the default.
	BatchSize int `json:"batch_size,omitempty"`
}

// SyncResponse represents the HTTP response payload for a completed sync.
type SyncResponse struct {
	Synced int    `json:"synced"`
	Total  int    `json:"total"`
	Status string `json:"status"`
	// MetadataStale is true when items were indexed but the sync bookkeeping
	// could not be updated; a re-run fixes it.
	MetadataStale bool `json:"metadata_stale,omitempty"`
}

// ServeHTTP handles HTTP requests to trigger a sync. The request blocks
// until the run completes; a run already in progress yields 409.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SyncRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if !h.mu.TryLock() {
		logger.WarnContext(ctx, "sync already in progress")
		writeError(w, http.StatusConflict, "Sync already in progress")
		return
	}
	defer h.mu.Unlock()

	result, err := h.Run(ctx, syncengine.Options{ForceFull: req.ForceFull, BatchSize: req.BatchSize})
	switch {
	case err == nil:
		h.writeResult(w, result, storage.RunStatusSucceeded, false)
	case errors.Is(err, syncengine.ErrMetadataWrite):
		h.writeResult(w, result, storage.RunStatusMetadataStale, true)
	default:
		logger.ErrorContext(ctx, "sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "Sync failed")
	}
}

// Run executes one sync pass and persists the outcome to the run history.
// Callers must hold the handler's lock; HTTP requests and the startup sync
// both go through it.
func (h *SyncHandler) Run(ctx context.Context, opts syncengine.Options) (*syncengine.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	started := time.Now().UTC()
	result, err := h.engine.Sync(ctx, opts)
	finished := time.Now().UTC()

	run := &storage.Run{
		StartedAt:  started,
		FinishedAt: finished,
		ForceFull:  opts.ForceFull,
		BatchSize:  opts.BatchSize,
	}
	switch {
	case err == nil:
		run.Status = storage.RunStatusSucceeded
	case errors.Is(err, syncengine.ErrMetadataWrite):
		run.Status = storage.RunStatusMetadataStale
		run.Error = err.Error()
	default:
		run.Status = storage.RunStatusFailed
		run.Error = err.Error()
	}
	if result != nil {
		run.Synced = result.Synced
		run.Total = result.Total
	}

	if _, insertErr := h.runs.Insert(ctx, run); insertErr != nil {
		// History is best-effort; the sync outcome stands.
		logger.ErrorContext(ctx, "failed to record sync run", "error", insertErr)
	}
	return result, err
}

// TryRun executes a sync pass if no other run is in progress, reporting
// whether it ran. Used by the background sync at startup.
func (h *SyncHandler) TryRun(ctx context.Context, forceFull bool) (bool, error) {
	if !h.mu.TryLock() {
		return false, nil
	}
	defer h.mu.Unlock()

	_, err := h.Run(ctx, syncengine.Options{ForceFull: forceFull})
	return true, err
}

func (h *SyncHandler) writeResult(w http.ResponseWriter, result *syncengine.Result, status string, stale bool) {
	resp := SyncResponse{Status: status, MetadataStale: stale}
	if result != nil {
		resp.Synced = result.Synced
		resp.Total = result.Total
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
