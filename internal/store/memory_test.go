package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/auto-applier/internal/types"
)

func TestMemory_ListActionableOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	older := types.NewJob("Backend Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	older.DiscoveredAt = time.Now().Add(-2 * time.Hour)
	newer := types.NewJob("SRE", "Globex", "https://a.dev/2", types.SourceManual)
	newer.DiscoveredAt = time.Now().Add(-1 * time.Hour)
	applied := types.NewJob("PM", "Initech", "https://a.dev/3", types.SourceManual)
	applied.MarkApplied()

	require.NoError(t, m.SaveJob(ctx, newer))
	require.NoError(t, m.SaveJob(ctx, older))
	require.NoError(t, m.SaveJob(ctx, applied))

	jobs, err := m.ListActionable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2, "applied job is not actionable")
	assert.Equal(t, older.ID, jobs[0].ID, "oldest discovered first")
	assert.Equal(t, newer.ID, jobs[1].ID)

	jobs, err = m.ListActionable(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	// Non-positive limit means no cap, not zero rows.
	jobs, err = m.ListActionable(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestMemory_GetAndFindJob(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	job := types.NewJob("Backend Engineer", "Acme", "https://a.dev/1", types.SourceGreenhouse)
	require.NoError(t, m.SaveJob(ctx, job))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Title, got.Title)

	// Returned record is a copy, not shared state.
	got.Title = "mutated"
	again, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", again.Title)

	byURL, err := m.FindJobByURL(ctx, job.URL)
	require.NoError(t, err)
	assert.Equal(t, job.ID, byURL.ID)

	_, err = m.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindJobByURL(ctx, "https://a.dev/none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	job := types.NewJob("Backend Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	require.NoError(t, m.SaveJob(ctx, job))

	at := time.Now()
	require.NoError(t, m.MarkJobApplied(ctx, job.ID, at))
	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusApplied, got.Status)
	require.NotNil(t, got.AppliedAt)

	// Moving off applied clears the timestamp, keeping the invariant.
	require.NoError(t, m.UpdateJobStatus(ctx, job.ID, types.JobStatusNew))
	got, err = m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusNew, got.Status)
	assert.Nil(t, got.AppliedAt)

	assert.ErrorIs(t, m.UpdateJobStatus(ctx, "missing", types.JobStatusNew), ErrNotFound)
	assert.ErrorIs(t, m.MarkJobApplied(ctx, "missing", at), ErrNotFound)
}

func TestMemory_Applications(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	job := types.NewJob("Backend Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)
	require.NoError(t, m.AddApplication(ctx, app))

	app.Start()
	app.AddQuestion(types.ApplicationQuestion{Text: "Why us?", Kind: types.QuestionTextarea})
	require.NoError(t, m.UpdateApplication(ctx, app))

	got, err := m.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationInProgress, got.Status)
	assert.Len(t, got.Questions, 1)
	assert.NotEmpty(t, got.Logs)

	missing := types.NewApplication(job)
	assert.ErrorIs(t, m.UpdateApplication(ctx, missing), ErrNotFound)
	_, err = m.GetApplication(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CountJobsByStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 3; i++ {
		job := types.NewJob("Eng", "Acme", "https://a.dev/new/"+string(rune('a'+i)), types.SourceManual)
		require.NoError(t, m.SaveJob(ctx, job))
	}
	failed := types.NewJob("Eng", "Acme", "https://a.dev/failed", types.SourceManual)
	failed.Status = types.JobStatusFailed
	require.NoError(t, m.SaveJob(ctx, failed))

	counts, err := m.CountJobsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[types.JobStatusNew])
	assert.Equal(t, 1, counts[types.JobStatusFailed])
}
