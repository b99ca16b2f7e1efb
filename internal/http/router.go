package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"workitems-ai/internal/handlers"
	"workitems-ai/internal/index"
	"workitems-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Answerer handlers.Answerer
	Syncer   handlers.Syncer
	Store    index.Store
	Runs     storage.RunStore

	// SyncHandler is optional; when set it is used instead of building one
	// from Syncer, so the startup sync and HTTP requests share one lock.
	SyncHandler *handlers.SyncHandler
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.Answerer)
	syncHandler := deps.SyncHandler
	if syncHandler == nil {
		syncHandler = handlers.NewSyncHandler(deps.Syncer, deps.Runs)
	}
	statusHandler := handlers.NewStatusHandler(deps.Store, deps.Runs)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/sync", syncHandler)
		r.Method(http.MethodGet, "/status", statusHandler)
	})

	r.Method(http.MethodGet, "/healthz", healthHandler)

	return r
}
