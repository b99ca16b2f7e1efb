package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"workitems-ai/internal/config"
	"workitems-ai/internal/handlers"
	"workitems-ai/internal/http"
	"workitems-ai/internal/index"
	"workitems-ai/internal/llm"
	"workitems-ai/internal/query"
	"workitems-ai/internal/storage"
	syncengine "workitems-ai/internal/sync"
	"workitems-ai/internal/tracker"
)

// syncRunner wires the configured batch size and progress logging into every
// sync run, regardless of whether it was triggered over HTTP or at startup.
type syncRunner struct {
	engine    *syncengine.Engine
	batchSize int
}

func (s *syncRunner) Sync(ctx context.Context, opts syncengine.Options) (*syncengine.Result, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = s.batchSize
	}
	opts.OnProgress = func(phase syncengine.Phase, percent int, message string) {
		slog.Info("Sync progress", "phase", phase, "percent", percent, "message", message)
	}
	return s.engine.Sync(ctx, opts)
}

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	runRepo := storage.NewRunRepo(db)

	ctx := context.Background()

	// Initialize Qdrant-backed work item index
	store, err := index.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantVectorSize, cfg.TrackerProject)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Work item tracker client
	source := tracker.NewClient(cfg.TrackerBaseURL, cfg.TrackerToken, cfg.TrackerProject)
	slog.Info("Tracker client initialized", "project", cfg.TrackerProject)

	// Sync engine
	engine := syncengine.NewEngine(source, embedder, store, cfg.QdrantVectorSize)
	syncer := &syncRunner{engine: engine, batchSize: cfg.SyncBatchSize}
	syncHandler := handlers.NewSyncHandler(syncer, runRepo)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Query orchestrator
	orchestrator := query.NewOrchestrator(embedder, llmClient, store)
	slog.Info("Query orchestrator initialized")

	// Create router with dependencies
	deps := &http.Deps{
		Answerer:    orchestrator,
		Syncer:      syncer,
		Store:       store,
		Runs:        runRepo,
		SyncHandler: syncHandler,
	}
	router := http.NewRouter(deps)

	// Start a delta sync in background after the router is ready
	go func() {
		syncCtx := context.Background()
		slog.Info("Starting background sync")
		ran, err := syncHandler.TryRun(syncCtx, false)
		switch {
		case !ran:
			slog.Info("Background sync skipped, another run in progress")
		case err != nil:
			slog.Error("Background sync completed with errors", "error", err)
		default:
			slog.Info("Background sync completed successfully")
		}
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
