package pipeline

// Outcome classifies how a pipeline run terminated.
type Outcome int

const (
	// OutcomeCompleted means the work list was exhausted and every stage
	// drained normally.
	OutcomeCompleted Outcome = iota
	// OutcomeInterrupted means cancellation was signaled mid-run; in-flight
	// tasks were still drained before the run reported this outcome.
	OutcomeInterrupted
	// OutcomeFailed means a configuration or invariant fault aborted the run.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit convention: 0 for normal
// completion, 130 for interruption, 1 for internal failure.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeCompleted:
		return 0
	case OutcomeInterrupted:
		return 130
	default:
		return 1
	}
}

// Summary reports per-item accounting for a run so callers can state how many
// items completed versus were abandoned when a run is interrupted.
type Summary struct {
	// Submitted is the size of the work list handed to Run.
	Submitted int
	// Fetched counts successful downloads, including any later dropped by
	// shutdown.
	Fetched int
	// FetchFailed counts items whose download failed; they are skipped.
	FetchFailed int
	// Processed counts successful processing tasks.
	Processed int
	// ProcessFailed counts items whose processing failed after download.
	ProcessFailed int
	// Delivered counts results handed to the sink.
	Delivered int
	// Dropped counts artifacts that were fetched but abandoned by shutdown
	// before processing started.
	Dropped int
}

// Abandoned reports items that never left the work queue.
func (s Summary) Abandoned() int {
	n := s.Submitted - s.Fetched - s.FetchFailed
	if n < 0 {
		return 0
	}
	return n
}
