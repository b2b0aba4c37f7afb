package diarization

import (
	"context"
	"sync"
)

// Tracker counts outstanding diarization jobs. Jobs are added as the
// submitter dispatches them and resolved as webhook results arrive; Wait
// unblocks once the tracker is sealed and every job has resolved.
type Tracker struct {
	mu          sync.Mutex
	outstanding map[int64]string
	sealed      bool
	done        chan struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		outstanding: make(map[int64]string),
		done:        make(chan struct{}),
	}
}

// Add registers an outstanding job for the recording. Adding after Seal is
// a no-op; submission has already finished by then.
func (t *Tracker) Add(recordingID int64, filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return
	}
	t.outstanding[recordingID] = filename
}

// Resolve marks the recording's job as complete. It reports whether the
// recording had an outstanding job.
func (t *Tracker) Resolve(recordingID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.outstanding[recordingID]; !ok {
		return false
	}
	delete(t.outstanding, recordingID)
	t.maybeFinishLocked()
	return true
}

// Seal declares that no further jobs will be added.
func (t *Tracker) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	t.maybeFinishLocked()
}

// Outstanding returns the filenames of unresolved jobs.
func (t *Tracker) Outstanding() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.outstanding))
	for _, name := range t.outstanding {
		names = append(names, name)
	}
	return names
}

// Wait blocks until all jobs resolve or the context ends.
func (t *Tracker) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) maybeFinishLocked() {
	if t.sealed && len(t.outstanding) == 0 {
		select {
		case <-t.done:
		default:
			close(t.done)
		}
	}
}
