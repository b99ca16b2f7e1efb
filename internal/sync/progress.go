package sync

// Phase names a checkpoint in a sync run.
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseIndex     Phase = "index"
	PhaseFetch     Phase = "fetch"
	PhaseEmbedding Phase = "embedding"
	PhaseIndexing  Phase = "indexing"
	PhaseCleanup   Phase = "cleanup"
	PhaseComplete  Phase = "complete"
)

// ProgressFunc receives progress checkpoints during a sync run. It is an
// observability hook only: it is invoked synchronously, its absence changes
// nothing, and it must not affect control flow.
type ProgressFunc func(phase Phase, percent int, message string)

// report invokes the callback when one is set.
func report(fn ProgressFunc, phase Phase, percent int, message string) {
	if fn != nil {
		fn(phase, percent, message)
	}
}
