package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

// AddApplication inserts a new application attempt.
func (db *DB) AddApplication(ctx context.Context, app *types.Application) error {
	questions, logs, err := marshalAppJSON(app)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO applications
			(id, job_id, job_title, company, job_url, vendor, status,
			 created_at, started_at, completed_at, questions, logs,
			 error_message, retry_count, max_retries, resume_uploaded, screenshots)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		app.ID, app.JobID, app.JobTitle, app.Company, app.JobURL, app.Vendor, app.Status,
		app.CreatedAt, app.StartedAt, app.CompletedAt, questions, logs,
		app.ErrorMessage, app.RetryCount, app.MaxRetries, app.ResumeUploaded, app.Screenshots,
	)
	if err != nil {
		return fmt.Errorf("failed to add application %s: %w", app.ID, err)
	}
	return nil
}

// UpdateApplication replaces an application record.
func (db *DB) UpdateApplication(ctx context.Context, app *types.Application) error {
	questions, logs, err := marshalAppJSON(app)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE applications SET
			status = $1, started_at = $2, completed_at = $3, questions = $4,
			logs = $5, error_message = $6, retry_count = $7, max_retries = $8,
			resume_uploaded = $9, screenshots = $10, vendor = $11
		 WHERE id = $12`,
		app.Status, app.StartedAt, app.CompletedAt, questions,
		logs, app.ErrorMessage, app.RetryCount, app.MaxRetries,
		app.ResumeUploaded, app.Screenshots, app.Vendor, app.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update application %s: %w", app.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const appColumns = `id, job_id, job_title, company, job_url, vendor, status,
	created_at, started_at, completed_at, questions, logs,
	error_message, retry_count, max_retries, resume_uploaded, screenshots`

// GetApplication returns the application or store.ErrNotFound.
func (db *DB) GetApplication(ctx context.Context, id string) (*types.Application, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return app, err
}

// ListApplicationsByJob returns a job's applications, oldest first.
func (db *DB) ListApplicationsByJob(ctx context.Context, jobID string) ([]*types.Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*types.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return out, nil
}

func scanApplication(scan func(dest ...any) error) (*types.Application, error) {
	var app types.Application
	var questions, logs []byte
	err := scan(
		&app.ID, &app.JobID, &app.JobTitle, &app.Company, &app.JobURL, &app.Vendor, &app.Status,
		&app.CreatedAt, &app.StartedAt, &app.CompletedAt, &questions, &logs,
		&app.ErrorMessage, &app.RetryCount, &app.MaxRetries, &app.ResumeUploaded, &app.Screenshots,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}

	if err := json.Unmarshal(questions, &app.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if err := json.Unmarshal(logs, &app.Logs); err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	return &app, nil
}

func marshalAppJSON(app *types.Application) (questions, logs []byte, err error) {
	questions, err = json.Marshal(app.Questions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode questions: %w", err)
	}
	logs, err = json.Marshal(app.Logs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode logs: %w", err)
	}
	return questions, logs, nil
}
