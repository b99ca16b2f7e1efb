package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"workitems-ai/internal/storage"
	storage_mocks "workitems-ai/internal/storage/mocks"
	syncengine "workitems-ai/internal/sync"
)

// syncerFunc adapts a function to the Syncer interface.
type syncerFunc func(ctx context.Context, opts syncengine.Options) (*syncengine.Result, error)

func (f syncerFunc) Sync(ctx context.Context, opts syncengine.Options) (*syncengine.Result, error) {
	return f(ctx, opts)
}

func TestSyncHandlerSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, run *storage.Run) (int64, error) {
			if run.Status != storage.RunStatusSucceeded {
				t.Errorf("expected succeeded status, got %q", run.Status)
			}
			if !run.ForceFull || run.BatchSize != 25 || run.Synced != 10 || run.Total != 100 {
				t.Errorf("unexpected recorded run: %+v", run)
			}
			return 1, nil
		})

	handler := NewSyncHandler(syncerFunc(
		func(_ context.Context, opts syncengine.Options) (*syncengine.Result, error) {
			if !opts.ForceFull {
				t.Error("expected force full option")
			}
			if opts.BatchSize != 25 {
				t.Errorf("expected batch size 25, got %d", opts.BatchSize)
			}
			return &syncengine.Result{Synced: 10, Total: 100}, nil
		}), runs)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"force_full":true,"batch_size":25}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Synced != 10 || resp.Total != 100 || resp.Status != storage.RunStatusSucceeded || resp.MetadataStale {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSyncHandlerEmptyBodyDefaultsToDelta(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	handler := NewSyncHandler(syncerFunc(
		func(_ context.Context, opts syncengine.Options) (*syncengine.Result, error) {
			if opts.ForceFull {
				t.Error("expected delta sync by default")
			}
			return &syncengine.Result{}, nil
		}), runs)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSyncHandlerMetadataStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, run *storage.Run) (int64, error) {
			if run.Status != storage.RunStatusMetadataStale {
				t.Errorf("expected metadata_stale status, got %q", run.Status)
			}
			return 1, nil
		})

	handler := NewSyncHandler(syncerFunc(
		func(context.Context, syncengine.Options) (*syncengine.Result, error) {
			return &syncengine.Result{Synced: 5, Total: 50},
				fmt.Errorf("%w: write timeout", syncengine.ErrMetadataWrite)
		}), runs)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for stale metadata, got %d", rec.Code)
	}

	var resp SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.MetadataStale || resp.Status != storage.RunStatusMetadataStale {
		t.Errorf("expected stale metadata flagged, got %+v", resp)
	}
	if resp.Synced != 5 || resp.Total != 50 {
		t.Errorf("expected data counts preserved, got %+v", resp)
	}
}

func TestSyncHandlerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, run *storage.Run) (int64, error) {
			if run.Status != storage.RunStatusFailed {
				t.Errorf("expected failed status, got %q", run.Status)
			}
			if run.Error == "" {
				t.Error("expected recorded error detail")
			}
			return 1, nil
		})

	handler := NewSyncHandler(syncerFunc(
		func(context.Context, syncengine.Options) (*syncengine.Result, error) {
			return nil, errors.New("tracker unreachable")
		}), runs)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestSyncHandlerSingleFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	release := make(chan struct{})
	started := make(chan struct{})
	handler := NewSyncHandler(syncerFunc(
		func(context.Context, syncengine.Options) (*syncengine.Result, error) {
			close(started)
			<-release
			return &syncengine.Result{}, nil
		}), runs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}()

	<-started
	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while sync in progress, got %d", rec.Code)
	}

	close(release)
	<-done
}

func TestSyncHandlerTryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil)

	handler := NewSyncHandler(syncerFunc(
		func(context.Context, syncengine.Options) (*syncengine.Result, error) {
			return &syncengine.Result{Synced: 1, Total: 1}, nil
		}), runs)

	ran, err := handler.TryRun(context.Background(), false)
	if err != nil {
		t.Fatalf("try run failed: %v", err)
	}
	if !ran {
		t.Error("expected run to proceed with free lock")
	}
}
