// Package store defines the persistence contract for jobs and
// applications, plus an in-memory implementation used by tests and
// zero-config local runs. The PostgreSQL implementation lives in the
// postgres subpackage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/auto-applier/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract consumed by the orchestrator, the
// scraper and the HTTP server. All writes are single-record upserts
// keyed by id; no cross-record transaction is required.
type Store interface {
	// ListActionable returns jobs in status new or queued, oldest
	// discovered first, capped at limit. A non-positive limit means
	// no cap.
	ListActionable(ctx context.Context, limit int) ([]*types.Job, error)
	// GetJob returns the job or ErrNotFound.
	GetJob(ctx context.Context, id string) (*types.Job, error)
	// FindJobByURL returns the job with the given canonical URL or
	// ErrNotFound. Used by discovery for dedupe.
	FindJobByURL(ctx context.Context, url string) (*types.Job, error)
	// SaveJob inserts or fully replaces a job record.
	SaveJob(ctx context.Context, job *types.Job) error
	// UpdateJobStatus sets only the lifecycle status of a job.
	UpdateJobStatus(ctx context.Context, id string, status types.JobStatus) error
	// MarkJobApplied sets status applied together with the timestamp,
	// keeping the applied_at-iff-applied invariant in one write.
	MarkJobApplied(ctx context.Context, id string, at time.Time) error
	// CountJobsByStatus returns per-status job counts for dashboards.
	CountJobsByStatus(ctx context.Context) (map[types.JobStatus]int, error)
	// ListJobs returns the most recently discovered jobs.
	ListJobs(ctx context.Context, limit int) ([]*types.Job, error)

	// AddApplication inserts a new application attempt.
	AddApplication(ctx context.Context, app *types.Application) error
	// UpdateApplication replaces an application record.
	UpdateApplication(ctx context.Context, app *types.Application) error
	// GetApplication returns the application or ErrNotFound.
	GetApplication(ctx context.Context, id string) (*types.Application, error)
	// ListApplicationsByJob returns a job's application attempts,
	// oldest first.
	ListApplicationsByJob(ctx context.Context, jobID string) ([]*types.Application, error)
}
