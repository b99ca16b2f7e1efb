package tracker

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source.go -package=mocks workitems-ai/internal/tracker Source

import (
	"context"
	"time"
)

// Source defines the interface for fetching work items from the tracker.
type Source interface {
	// FetchItems returns the items of the configured project. When since is
	// non-nil only items changed on or after that day are returned; the
	// source query is day-granular, so callers that need exact timestamp
	// semantics must re-filter the result.
	FetchItems(ctx context.Context, since *time.Time) ([]*Item, error)

	// ListIDs returns the complete authoritative set of native item IDs
	// currently present in the tracker project.
	ListIDs(ctx context.Context) (map[string]struct{}, error)
}
