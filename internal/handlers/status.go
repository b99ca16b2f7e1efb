package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/index"
	"workitems-ai/internal/storage"
)

const recentRunLimit = 10

// StatusHandler reports the sync state of the index.
type StatusHandler struct {
	store index.Store
	runs  storage.RunStore
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(store index.Store, runs storage.RunStore) *StatusHandler {
	return &StatusHandler{
		store: store,
		runs:  runs,
	}
}

// RunResponse is one sync run in the status payload.
type RunResponse struct {
	ID         int64  `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	ForceFull  bool   `json:"force_full"`
	Synced     int    `json:"synced"`
	Total      int    `json:"total"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// StatusResponse represents the HTTP response payload for sync status.
type StatusResponse struct {
	// LastSyncTime is the index's recorded last successful sync, empty when
	// no sync has completed yet.
	LastSyncTime  string        `json:"last_sync_time,omitempty"`
	WorkItemCount int           `json:"work_item_count"`
	LatestRun     *RunResponse  `json:"latest_run,omitempty"`
	RecentRuns    []RunResponse `json:"recent_runs,omitempty"`
}

// ServeHTTP handles HTTP requests for sync status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var resp StatusResponse

	meta, err := h.store.GetMetadata(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read sync metadata", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to read index metadata")
		return
	}
	if meta != nil {
		resp.LastSyncTime = meta.LastSyncTime.UTC().Format(time.RFC3339)
		resp.WorkItemCount = meta.WorkItemCount
	}

	latest, err := h.runs.Latest(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.ErrorContext(ctx, "failed to read latest sync run", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read sync history")
		return
	}
	if latest != nil {
		run := runResponse(latest)
		resp.LatestRun = &run
	}

	recent, err := h.runs.Recent(ctx, recentRunLimit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read sync history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read sync history")
		return
	}
	for _, run := range recent {
		resp.RecentRuns = append(resp.RecentRuns, runResponse(run))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func runResponse(run *storage.Run) RunResponse {
	return RunResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339),
		ForceFull:  run.ForceFull,
		Synced:     run.Synced,
		Total:      run.Total,
		Status:     run.Status,
		Error:      run.Error,
	}
}
