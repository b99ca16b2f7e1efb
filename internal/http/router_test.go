package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	index_mocks "workitems-ai/internal/index/mocks"
	"workitems-ai/internal/query"
	"workitems-ai/internal/storage"
	storage_mocks "workitems-ai/internal/storage/mocks"
	syncengine "workitems-ai/internal/sync"
)

type stubAnswerer struct{}

func (stubAnswerer) Answer(_ context.Context, _ string, _ int, emit query.EmitFunc) error {
	return emit("ok")
}

type stubSyncer struct{}

func (stubSyncer) Sync(context.Context, syncengine.Options) (*syncengine.Result, error) {
	return &syncengine.Result{}, nil
}

func newTestDeps(ctrl *gomock.Controller) *Deps {
	store := index_mocks.NewMockStore(ctrl)
	store.EXPECT().GetMetadata(gomock.Any()).Return(nil, nil).AnyTimes()

	runs := storage_mocks.NewMockRunStore(ctrl)
	runs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(1), nil).AnyTimes()
	runs.EXPECT().Latest(gomock.Any()).Return(nil, storage.ErrNotFound).AnyTimes()
	runs.EXPECT().Recent(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	return &Deps{
		Answerer: stubAnswerer{},
		Syncer:   stubSyncer{},
		Store:    store,
		Runs:     runs,
	}
}

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newTestDeps(ctrl))
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newTestDeps(ctrl))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "POST /api/ask exists",
			method:     http.MethodPost,
			path:       "/api/ask",
			wantStatus: http.StatusBadRequest, // ask handler rejects the empty body, but the route exists
		},
		{
			name:       "GET /api/ask method not allowed",
			method:     http.MethodGet,
			path:       "/api/ask",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "POST /api/sync exists",
			method:     http.MethodPost,
			path:       "/api/sync",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /api/status exists",
			method:     http.MethodGet,
			path:       "/api/status",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /healthz exists",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newTestDeps(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
