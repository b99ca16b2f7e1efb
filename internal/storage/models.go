package storage

import "time"

// Run statuses recorded in sync history.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	// RunStatusMetadataStale marks a run whose item writes succeeded but
	// whose index bookkeeping could not be updated.
	RunStatusMetadataStale = "metadata_stale"
)

// Run is one recorded sync run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	ForceFull  bool
	BatchSize  int // Zero when the engine default was used
	Synced     int // Items written during the run
	Total      int // Authoritative index count after the run
	Status     string
	Error      string // Failure detail, empty on success
}
