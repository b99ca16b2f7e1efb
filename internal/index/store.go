package index

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks workitems-ai/internal/index Store

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"workitems-ai/internal/contextutil"
)

const (
	// metadataKey is the reserved key of the singleton sync metadata record.
	metadataKey = "sync-metadata"

	// metadataTimeFormat is the fixed-precision UTC format the store's
	// date type requires for last_sync_time.
	metadataTimeFormat = "2006-01-02T15:04:05.000000Z"

	// hybridCandidateLimit is how many vector candidates are pulled before
	// lexical blending when a keyword component is present.
	hybridCandidateLimit = 50

	// scrollLimit bounds the ID listing scroll. Adjust if a project holds
	// more items.
	scrollLimit = 10000
)

// SearchQuery describes one retrieval against the index.
type SearchQuery struct {
	// Text is the keyword component. Empty disables lexical blending and
	// ranks by vector similarity alone.
	Text string
	// Vector is the query embedding.
	Vector []float32
	// TopK is the maximum number of documents returned.
	TopK int
	// Filter restricts the search; nil means items only (metadata excluded).
	Filter *Predicate
}

// Metadata is the content of the reserved sync metadata record.
type Metadata struct {
	LastSyncTime  time.Time
	WorkItemCount int
}

// Store defines the interface for index operations used by the sync engine
// and the query orchestrator.
type Store interface {
	// EnsureCollection creates the index collection if it does not exist and
	// validates the vector size when it does.
	EnsureCollection(ctx context.Context) error

	// Upsert writes documents (insert or overwrite by key).
	Upsert(ctx context.Context, docs []*Document) error

	// DeleteByItemIDs removes the documents with the given native item IDs.
	DeleteByItemIDs(ctx context.Context, itemIDs []string) error

	// ListItemIDs returns the native item IDs of every indexed item
	// (metadata record excluded).
	ListItemIDs(ctx context.Context) (map[string]struct{}, error)

	// Count returns the exact number of items matching the predicate.
	// A nil predicate counts all items (metadata record excluded).
	Count(ctx context.Context, pred *Predicate) (int, error)

	// Search performs a scored retrieval.
	Search(ctx context.Context, q SearchQuery) ([]*Document, error)

	// GetMetadata reads the sync metadata record, (nil, nil) if absent.
	GetMetadata(ctx context.Context) (*Metadata, error)

	// PutMetadata overwrites the sync metadata record.
	PutMetadata(ctx context.Context, meta *Metadata) error
}

// QdrantStore implements Store against a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize int
	project    string
}

// NewQdrantStore creates a new Qdrant-backed index store.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string, vectorSize int, project string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		vectorSize: vectorSize,
		project:    project,
	}, nil
}

// EnsureCollection creates the collection if absent and validates the vector
// size if it already exists.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", s.collection, "vector_size", s.vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}

	if int(params.Size) != s.vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", s.vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", s.vectorSize)
	return nil
}

// Upsert writes documents to the collection, overwriting existing points.
func (s *QdrantStore) Upsert(ctx context.Context, docs []*Document) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		vec := doc.Vector
		if len(vec) == 0 {
			// Every point needs a vector; the metadata record carries zeros.
			vec = make([]float32, s.vectorSize)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.PointID()),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(doc.payload()),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert documents", "collection", s.collection, "count", len(docs), "error", err)
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	logger.InfoContext(ctx, "upserted documents", "collection", s.collection, "count", len(docs))
	return nil
}

// DeleteByItemIDs removes the points addressed by the composite keys derived
// from the given native IDs.
func (s *QdrantStore) DeleteByItemIDs(ctx context.Context, itemIDs []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(itemIDs) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(itemIDs))
	for _, id := range itemIDs {
		pointIDs = append(pointIDs, qdrant.NewID(pointIDForKey(s.project+"_"+id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete documents", "collection", s.collection, "count", len(itemIDs), "error", err)
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	logger.InfoContext(ctx, "deleted documents", "collection", s.collection, "count", len(itemIDs))
	return nil
}

// ListItemIDs scrolls the collection and returns the native ID of every item.
func (s *QdrantStore) ListItemIDs(ctx context.Context) (map[string]struct{}, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         NotMetadata().filter(),
		Limit:          qdrant.PtrOf(uint32(scrollLimit)),
		WithPayload:    qdrant.NewWithPayloadInclude("item_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll item IDs: %w", err)
	}

	ids := make(map[string]struct{}, len(points))
	for _, point := range points {
		if v, ok := point.Payload["item_id"]; ok {
			if id := v.GetStringValue(); id != "" {
				ids[id] = struct{}{}
			}
		}
	}
	return ids, nil
}

// Count returns the exact number of items matching the predicate, always
// excluding the metadata record.
func (s *QdrantStore) Count(ctx context.Context, pred *Predicate) (int, error) {
	combined := And(NotMetadata(), pred)

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         combined.filter(),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// Search performs a scored retrieval: vector similarity, blended with a
// client-side lexical score when the query has a keyword component.
func (s *QdrantStore) Search(ctx context.Context, q SearchQuery) ([]*Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if q.TopK <= 0 {
		return nil, fmt.Errorf("top k must be greater than 0")
	}

	pred := And(NotMetadata(), q.Filter)

	limit := uint64(q.TopK)
	if q.Text != "" && limit < hybridCandidateLimit {
		limit = hybridCandidateLimit
	}

	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         pred.filter(),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search documents", "collection", s.collection, "top_k", q.TopK, "error", err)
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	docs := make([]*Document, 0, len(scored))
	for _, point := range scored {
		doc := documentFromPayload(point.Payload)
		doc.Score = point.Score
		if q.Text != "" {
			doc.Score += lexicalScore(q.Text, doc.Content, doc.Title)
		}
		docs = append(docs, doc)
	}

	if q.Text != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].Score > docs[j].Score
		})
	}
	if len(docs) > q.TopK {
		docs = docs[:q.TopK]
	}

	logger.InfoContext(ctx, "search completed",
		"collection", s.collection, "top_k", q.TopK, "results", len(docs), "filter", pred.String())
	return docs, nil
}

// GetMetadata reads the reserved sync metadata record.
func (s *QdrantStore) GetMetadata(ctx context.Context) (*Metadata, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointIDForKey(metadataKey))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	doc := documentFromPayload(points[0].Payload)
	meta := &Metadata{WorkItemCount: doc.WorkItemCount}
	if doc.LastSyncTime != "" {
		t, err := time.Parse(metadataTimeFormat, doc.LastSyncTime)
		if err != nil {
			return nil, fmt.Errorf("invalid last_sync_time %q: %w", doc.LastSyncTime, err)
		}
		meta.LastSyncTime = t
	}
	return meta, nil
}

// PutMetadata overwrites the reserved sync metadata record. The record is a
// regular document flagged is_metadata so item queries can cheaply exclude
// it; its vector is all zeros.
func (s *QdrantStore) PutMetadata(ctx context.Context, meta *Metadata) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc := &Document{
		Key:           metadataKey,
		ItemID:        metadataKey,
		Title:         "Sync Metadata",
		Description:   "Internal metadata document",
		Type:          "Metadata",
		State:         "Active",
		Project:       "System",
		IsMetadata:    true,
		LastSyncTime:  meta.LastSyncTime.UTC().Format(metadataTimeFormat),
		WorkItemCount: meta.WorkItemCount,
	}

	if err := s.Upsert(ctx, []*Document{doc}); err != nil {
		return fmt.Errorf("failed to write sync metadata: %w", err)
	}

	logger.InfoContext(ctx, "updated sync metadata", "work_item_count", meta.WorkItemCount)
	return nil
}
