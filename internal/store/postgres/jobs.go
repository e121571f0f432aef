package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

const jobColumns = `id, title, company, location, url, apply_url, source, vendor, status, discovered_at, applied_at, tags`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.URL, &j.ApplyURL,
		&j.Source, &j.Vendor, &j.Status, &j.DiscoveredAt, &j.AppliedAt, &j.Tags,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &j, nil
}

// ListActionable returns new/queued jobs oldest first. A non-positive
// limit means no cap, matching the in-memory store.
func (db *DB) ListActionable(ctx context.Context, limit int) ([]*types.Job, error) {
	// LIMIT NULL is Postgres for "no limit".
	var rowCap *int
	if limit > 0 {
		rowCap = &limit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status IN ('new', 'queued')
		 ORDER BY discovered_at ASC
		 LIMIT $1`,
		rowCap,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list actionable jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListJobs returns the most recently discovered jobs.
func (db *DB) ListJobs(ctx context.Context, limit int) ([]*types.Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY discovered_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]*types.Job, error) {
	var out []*types.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return out, nil
}

// GetJob returns the job or store.ErrNotFound.
func (db *DB) GetJob(ctx context.Context, id string) (*types.Job, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// FindJobByURL returns the job with the given canonical URL.
func (db *DB) FindJobByURL(ctx context.Context, url string) (*types.Job, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = $1`, url)
	return scanJob(row)
}

// SaveJob inserts or fully replaces a job record.
func (db *DB) SaveJob(ctx context.Context, job *types.Job) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
			title = $2, company = $3, location = $4, url = $5, apply_url = $6,
			source = $7, vendor = $8, status = $9, discovered_at = $10,
			applied_at = $11, tags = $12`,
		job.ID, job.Title, job.Company, job.Location, job.URL, job.ApplyURL,
		job.Source, job.Vendor, job.Status, job.DiscoveredAt, job.AppliedAt, job.Tags,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobStatus sets the lifecycle status. Moving off applied clears
// the timestamp so applied_at exists exactly when status is applied.
func (db *DB) UpdateJobStatus(ctx context.Context, id string, status types.JobStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = $1,
			applied_at = CASE WHEN $1 = 'applied' THEN applied_at ELSE NULL END
		 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkJobApplied sets status applied with its timestamp in one write.
func (db *DB) MarkJobApplied(ctx context.Context, id string, at time.Time) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = 'applied', applied_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountJobsByStatus returns per-status job counts.
func (db *DB) CountJobsByStatus(ctx context.Context) (map[types.JobStatus]int, error) {
	rows, err := db.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	out := make(map[types.JobStatus]int)
	for rows.Next() {
		var status types.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		out[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job counts: %w", err)
	}
	return out, nil
}
