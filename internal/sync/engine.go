package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/index"
	"workitems-ai/internal/llm"
	"workitems-ai/internal/tracker"
)

// ErrMetadataWrite signals that item indexing succeeded but the sync
// bookkeeping could not be updated. Indexed data is valid and searchable;
// the metadata is stale and heals on the next successful sync.
var ErrMetadataWrite = errors.New("sync metadata write failed")

const defaultBatchSize = 50

// Engine reconciles the search index with the item tracker.
//
// Callers must serialize Sync invocations against the same index: two
// concurrent full syncs could race on deletion reconciliation and the
// metadata overwrite.
type Engine struct {
	source     tracker.Source
	embedder   llm.Embedder
	store      index.Store
	vectorSize int
}

// NewEngine creates a sync engine.
func NewEngine(source tracker.Source, embedder llm.Embedder, store index.Store, vectorSize int) *Engine {
	return &Engine{
		source:     source,
		embedder:   embedder,
		store:      store,
		vectorSize: vectorSize,
	}
}

// Options configures one sync run.
type Options struct {
	// ForceFull ignores the recorded last sync time, fetches every item and
	// runs deletion reconciliation.
	ForceFull bool
	// BatchSize is the number of items embedded and upserted per batch.
	// Zero or negative uses the default.
	BatchSize int
	// OnProgress, when set, receives checkpoint notifications.
	OnProgress ProgressFunc
}

// Result reports a completed sync run.
type Result struct {
	// Synced is the number of items written during this run.
	Synced int
	// Total is the authoritative item count in the index after the run.
	// Zero when the run ends with ErrMetadataWrite before the recount.
	Total int
}

// Sync brings the index into agreement with the tracker.
//
// Embedding failures degrade to zero vectors so indexing proceeds; upsert
// failures abort the run. A failure updating the sync metadata after items
// were written returns a populated Result together with ErrMetadataWrite.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	report(opts.OnProgress, PhaseInit, 0, "Starting sync")

	if err := e.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	report(opts.OnProgress, PhaseIndex, 5, "Index ready")

	var lastSync *time.Time
	if !opts.ForceFull {
		meta, err := e.store.GetMetadata(ctx)
		if err != nil {
			// Unreadable metadata falls back to a full fetch; the record is
			// overwritten at the end of the run.
			logger.WarnContext(ctx, "failed to read sync metadata, performing full fetch", "error", err)
		} else if meta != nil && !meta.LastSyncTime.IsZero() {
			t := meta.LastSyncTime
			lastSync = &t
		}
	}

	report(opts.OnProgress, PhaseFetch, 10, "Fetching items")
	items, err := e.source.FetchItems(ctx, lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	if lastSync != nil {
		// The source query is day-granular; re-filter to the exact recorded
		// timestamp so the overlap day is not re-indexed.
		items = changedAfter(items, *lastSync)
	}
	logger.InfoContext(ctx, "fetched items", "count", len(items), "delta", lastSync != nil)

	synced := 0
	if len(items) > 0 {
		totalBatches := (len(items) + batchSize - 1) / batchSize
		for start := 0; start < len(items); start += batchSize {
			end := start + batchSize
			if end > len(items) {
				end = len(items)
			}
			batch := items[start:end]
			batchNum := start/batchSize + 1
			percent := 10 + 75*start/len(items)

			report(opts.OnProgress, PhaseEmbedding, percent,
				fmt.Sprintf("Embedding batch %d/%d", batchNum, totalBatches))
			vectors := e.embedBatch(ctx, batch)

			docs := make([]*index.Document, 0, len(batch))
			for i, item := range batch {
				doc := index.FromItem(item)
				doc.Vector = vectors[i]
				docs = append(docs, doc)
			}

			report(opts.OnProgress, PhaseIndexing, percent,
				fmt.Sprintf("Indexing batch %d/%d", batchNum, totalBatches))
			if err := e.store.Upsert(ctx, docs); err != nil {
				return nil, fmt.Errorf("failed to index batch %d: %w", batchNum, err)
			}
			synced += len(batch)
		}
	}

	// An empty full fetch is indistinguishable from a source outage, so it
	// must never drive deletions: diffing an empty source set against the
	// index would wipe every previously indexed item.
	if opts.ForceFull && len(items) > 0 {
		report(opts.OnProgress, PhaseCleanup, 90, "Reconciling deletions")
		if err := e.reconcile(ctx); err != nil {
			return nil, err
		}
	}

	total, err := e.store.Count(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count indexed items", "error", err)
		return &Result{Synced: synced}, fmt.Errorf("%w: counting items: %v", ErrMetadataWrite, err)
	}

	meta := &index.Metadata{LastSyncTime: time.Now().UTC(), WorkItemCount: total}
	if err := e.store.PutMetadata(ctx, meta); err != nil {
		logger.ErrorContext(ctx, "failed to write sync metadata", "error", err)
		return &Result{Synced: synced, Total: total}, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}

	report(opts.OnProgress, PhaseComplete, 100, fmt.Sprintf("Synced %d items", synced))
	logger.InfoContext(ctx, "sync completed", "synced", synced, "total", total, "force_full", opts.ForceFull)
	return &Result{Synced: synced, Total: total}, nil
}

// embedBatch returns one vector per item. A failed embedding call degrades
// the whole batch to zero vectors: a record without a useful vector is still
// findable through filters and keywords, a missing record is not.
func (e *Engine) embedBatch(ctx context.Context, batch []*tracker.Item) [][]float32 {
	logger := contextutil.LoggerFromContext(ctx)

	texts := make([]string, 0, len(batch))
	for _, item := range batch {
		texts = append(texts, item.BuildContent())
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vectors) != len(batch) {
		logger.WarnContext(ctx, "embedding batch failed, substituting zero vectors",
			"batch_size", len(batch), "error", err)
		vectors = make([][]float32, len(batch))
		for i := range vectors {
			vectors[i] = make([]float32, e.vectorSize)
		}
	}
	return vectors
}

// reconcile removes indexed items that no longer exist in the tracker.
// Delta syncs carry no deletion signal, so this only runs on full syncs
// where the authoritative ID set is fetched anyway.
func (e *Engine) reconcile(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	sourceIDs, err := e.source.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list source item IDs: %w", err)
	}
	indexedIDs, err := e.store.ListItemIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed item IDs: %w", err)
	}

	stale := make([]string, 0)
	for id := range indexedIDs {
		if _, ok := sourceIDs[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := e.store.DeleteByItemIDs(ctx, stale); err != nil {
		return fmt.Errorf("failed to delete stale items: %w", err)
	}
	logger.InfoContext(ctx, "removed stale items", "count", len(stale))
	return nil
}

// changedAfter keeps items whose change timestamp is strictly after since.
func changedAfter(items []*tracker.Item, since time.Time) []*tracker.Item {
	kept := make([]*tracker.Item, 0, len(items))
	for _, item := range items {
		if item.ChangedDate.After(since) {
			kept = append(kept, item)
		}
	}
	return kept
}
