package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/auto-applier/internal/types"
)

// Memory is an in-memory Store. Records are deep-copied on the way in
// and out so callers never share mutable state with the store.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
	apps map[string]*types.Application
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]*types.Job),
		apps: make(map[string]*types.Application),
	}
}

var _ Store = (*Memory)(nil)

func cloneJob(j *types.Job) *types.Job {
	out := *j
	if j.AppliedAt != nil {
		at := *j.AppliedAt
		out.AppliedAt = &at
	}
	out.Tags = append([]string(nil), j.Tags...)
	return &out
}

func cloneApp(a *types.Application) *types.Application {
	out := *a
	if a.StartedAt != nil {
		at := *a.StartedAt
		out.StartedAt = &at
	}
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		out.CompletedAt = &at
	}
	out.Questions = append([]types.ApplicationQuestion(nil), a.Questions...)
	out.Logs = append([]types.ApplicationLog(nil), a.Logs...)
	out.Screenshots = append([]string(nil), a.Screenshots...)
	return &out
}

// ListActionable returns new/queued jobs oldest first.
func (m *Memory) ListActionable(_ context.Context, limit int) ([]*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Job
	for _, j := range m.jobs {
		if j.Actionable() {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].DiscoveredAt.Before(out[k].DiscoveredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetJob returns the job or ErrNotFound.
func (m *Memory) GetJob(_ context.Context, id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

// FindJobByURL returns the job with the given URL or ErrNotFound.
func (m *Memory) FindJobByURL(_ context.Context, url string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.URL == url {
			return cloneJob(j), nil
		}
	}
	return nil, ErrNotFound
}

// SaveJob inserts or replaces a job.
func (m *Memory) SaveJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

// UpdateJobStatus sets the lifecycle status of a job.
func (m *Memory) UpdateJobStatus(_ context.Context, id string, status types.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	if status != types.JobStatusApplied {
		j.AppliedAt = nil
	}
	return nil
}

// MarkJobApplied sets status applied with its timestamp atomically.
func (m *Memory) MarkJobApplied(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = types.JobStatusApplied
	j.AppliedAt = &at
	return nil
}

// CountJobsByStatus returns per-status job counts.
func (m *Memory) CountJobsByStatus(_ context.Context) (map[types.JobStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.JobStatus]int)
	for _, j := range m.jobs {
		out[j.Status]++
	}
	return out, nil
}

// ListJobs returns the most recently discovered jobs.
func (m *Memory) ListJobs(_ context.Context, limit int) ([]*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].DiscoveredAt.After(out[k].DiscoveredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AddApplication inserts a new application.
func (m *Memory) AddApplication(_ context.Context, app *types.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = cloneApp(app)
	return nil
}

// UpdateApplication replaces an application record.
func (m *Memory) UpdateApplication(_ context.Context, app *types.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apps[app.ID]; !ok {
		return ErrNotFound
	}
	m.apps[app.ID] = cloneApp(app)
	return nil
}

// ListApplicationsByJob returns a job's applications, oldest first.
func (m *Memory) ListApplicationsByJob(_ context.Context, jobID string) ([]*types.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Application
	for _, a := range m.apps {
		if a.JobID == jobID {
			out = append(out, cloneApp(a))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}

// GetApplication returns the application or ErrNotFound.
func (m *Memory) GetApplication(_ context.Context, id string) (*types.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneApp(a), nil
}
