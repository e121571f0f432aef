// Package runs tracks in-flight application runs keyed by job id. It is
// the only in-memory state shared across concurrently running jobs and
// provides duplicate-run prevention plus cooperative cancellation.
package runs

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyRunning is returned by Register when an active,
// non-cancelled run already exists for the job id.
var ErrAlreadyRunning = errors.New("run already in progress for this job")

// Status is a read-only snapshot of one run for external pollers.
type Status struct {
	JobID     string    `json:"job_id"`
	Cancelled bool      `json:"cancelled"`
	StartedAt time.Time `json:"started_at"`
}

// Run is the handle held by the goroutine that owns a job's run. The
// cancellation flag is read through the handle so a run that was
// cancelled and superseded keeps seeing its own flag, not the
// successor's entry.
type Run struct {
	jobID     string
	startedAt time.Time
	cancelled atomic.Bool
}

// JobID returns the job id this run was registered for.
func (r *Run) JobID() string { return r.jobID }

// StartedAt returns when the run was registered.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Cancelled reports whether cancellation was requested for this run.
// Checked cooperatively at the orchestrator's checkpoints.
func (r *Run) Cancelled() bool { return r.cancelled.Load() }

// Registry is a process-wide table of in-flight runs. It is injected
// into the orchestrator and the HTTP server via construction, never a
// package-level global. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Run
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Run)}
}

// Register claims the job id for a new run and returns its handle. It
// fails with ErrAlreadyRunning if an active, non-cancelled entry
// exists. A cancelled leftover entry is replaced; the superseded run
// still sees its own flag through its handle and winds down at its
// next checkpoint.
func (r *Registry) Register(jobID string) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[jobID]; ok && !e.Cancelled() {
		return nil, ErrAlreadyRunning
	}
	run := &Run{jobID: jobID, startedAt: time.Now()}
	r.entries[jobID] = run
	return run, nil
}

// RequestCancel sets the advisory cancellation flag for a running job.
// It does not interrupt in-flight browser calls; the run observes the
// flag at its next checkpoint. Returns false when no run is active.
func (r *Registry) RequestCancel(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[jobID]
	if !ok {
		return false
	}
	e.cancelled.Store(true)
	return true
}

// Release removes the run's entry. It must run on every exit path of a
// job run, so callers defer it immediately after Register. If the
// entry was already replaced by a newer run, the newer entry is left
// untouched. Releasing twice is a no-op.
func (r *Registry) Release(run *Run) {
	if run == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[run.jobID]; ok && current == run {
		delete(r.entries, run.jobID)
	}
}

// Status returns a snapshot for the job id and whether a run is active.
func (r *Registry) Status(jobID string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[jobID]
	if !ok {
		return Status{JobID: jobID}, false
	}
	return Status{JobID: jobID, Cancelled: e.Cancelled(), StartedAt: e.startedAt}, true
}

// Active returns the number of in-flight runs.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
