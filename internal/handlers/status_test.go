package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"workitems-ai/internal/index"
	index_mocks "workitems-ai/internal/index/mocks"
	"workitems-ai/internal/storage"
	storage_mocks "workitems-ai/internal/storage/mocks"
)

func TestStatusHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lastSync := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	store := index_mocks.NewMockStore(ctrl)
	store.EXPECT().GetMetadata(gomock.Any()).Return(&index.Metadata{
		LastSyncTime:  lastSync,
		WorkItemCount: 42,
	}, nil)

	latest := &storage.Run{
		ID:         3,
		StartedAt:  lastSync.Add(-time.Minute),
		FinishedAt: lastSync,
		Synced:     7,
		Total:      42,
		Status:     storage.RunStatusSucceeded,
	}
	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Latest(gomock.Any()).Return(latest, nil)
	runs.EXPECT().Recent(gomock.Any(), recentRunLimit).Return([]*storage.Run{latest}, nil)

	handler := NewStatusHandler(store, runs)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.LastSyncTime != "2025-06-01T12:30:00Z" {
		t.Errorf("unexpected last sync time %q", resp.LastSyncTime)
	}
	if resp.WorkItemCount != 42 {
		t.Errorf("expected 42 work items, got %d", resp.WorkItemCount)
	}
	if resp.LatestRun == nil || resp.LatestRun.ID != 3 || resp.LatestRun.Status != storage.RunStatusSucceeded {
		t.Errorf("unexpected latest run: %+v", resp.LatestRun)
	}
	if len(resp.RecentRuns) != 1 {
		t.Errorf("expected 1 recent run, got %d", len(resp.RecentRuns))
	}
}

func TestStatusHandlerBeforeFirstSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := index_mocks.NewMockStore(ctrl)
	store.EXPECT().GetMetadata(gomock.Any()).Return(nil, nil)

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Latest(gomock.Any()).Return(nil, storage.ErrNotFound)
	runs.EXPECT().Recent(gomock.Any(), recentRunLimit).Return(nil, nil)

	handler := NewStatusHandler(store, runs)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.LastSyncTime != "" || resp.WorkItemCount != 0 || resp.LatestRun != nil {
		t.Errorf("expected empty status before first sync, got %+v", resp)
	}
}

func TestStatusHandlerIndexError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := index_mocks.NewMockStore(ctrl)
	store.EXPECT().GetMetadata(gomock.Any()).Return(nil, errors.New("connection refused"))

	handler := NewStatusHandler(store, storage_mocks.NewMockRunStore(ctrl))
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestStatusHandlerMethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewStatusHandler(index_mocks.NewMockStore(ctrl), storage_mocks.NewMockRunStore(ctrl))
	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
