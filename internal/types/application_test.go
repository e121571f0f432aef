package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplication_DenormalizesJob(t *testing.T) {
	job := NewJob("Backend Engineer", "Acme", "https://a.dev/1", SourceGreenhouse)
	job.Vendor = VendorGreenhouse

	app := NewApplication(job)

	assert.Equal(t, job.ID, app.JobID)
	assert.Equal(t, "Backend Engineer", app.JobTitle)
	assert.Equal(t, "Acme", app.Company)
	assert.Equal(t, VendorGreenhouse, app.Vendor)
	assert.Equal(t, ApplicationPending, app.Status)
}

func TestApplication_Lifecycle(t *testing.T) {
	job := NewJob("Engineer", "Acme", "https://a.dev/1", SourceManual)

	t.Run("complete", func(t *testing.T) {
		app := NewApplication(job)
		app.Start()
		assert.Equal(t, ApplicationInProgress, app.Status)
		require.NotNil(t, app.StartedAt)

		app.Complete()
		assert.Equal(t, ApplicationSubmitted, app.Status)
		require.NotNil(t, app.CompletedAt)
	})

	t.Run("fail", func(t *testing.T) {
		app := NewApplication(job)
		app.Start()
		app.Fail("form blew up")
		assert.Equal(t, ApplicationFailed, app.Status)
		assert.Equal(t, "form blew up", app.ErrorMessage)
		require.NotNil(t, app.CompletedAt)
	})

	t.Run("review", func(t *testing.T) {
		app := NewApplication(job)
		app.Start()
		app.RequestReview("salary question")
		assert.Equal(t, ApplicationNeedsReview, app.Status)
		assert.Nil(t, app.CompletedAt, "review is not terminal")
	})

	t.Run("skip", func(t *testing.T) {
		app := NewApplication(job)
		app.Start()
		app.Skip("posting unreachable")
		assert.Equal(t, ApplicationSkipped, app.Status)
		require.NotNil(t, app.CompletedAt)
	})

	t.Run("cancel", func(t *testing.T) {
		app := NewApplication(job)
		app.Start()
		app.Cancel("run cancelled")
		assert.Equal(t, ApplicationCancelled, app.Status)
		assert.Nil(t, app.CompletedAt, "cancellation is not a terminal outcome")
	})
}

func TestApplication_LogsAreAppendOnly(t *testing.T) {
	job := NewJob("Engineer", "Acme", "https://a.dev/1", SourceManual)
	app := NewApplication(job)

	app.Start()
	app.AddLog("navigated", "loaded page")
	app.Fail("boom")

	require.Len(t, app.Logs, 3)
	assert.Equal(t, "started", app.Logs[0].Action)
	assert.Equal(t, "navigated", app.Logs[1].Action)
	assert.Equal(t, "failed", app.Logs[2].Action)
}

func TestApplication_Questions(t *testing.T) {
	job := NewJob("Engineer", "Acme", "https://a.dev/1", SourceManual)
	app := NewApplication(job)

	q := app.AddQuestion(ApplicationQuestion{Text: "Email", Kind: QuestionText})
	q.Answer = "ada@example.com"
	q.Answered = true

	app.AddQuestion(ApplicationQuestion{Text: "Salary", NeedsReview: true})

	// The returned pointer writes through to the stored slice.
	assert.Equal(t, "ada@example.com", app.Questions[0].Answer)

	flagged := app.QuestionsNeedingReview()
	require.Len(t, flagged, 1)
	assert.Equal(t, "Salary", flagged[0].Text)
}

func TestApplication_CanRetry(t *testing.T) {
	job := NewJob("Engineer", "Acme", "https://a.dev/1", SourceManual)
	app := NewApplication(job)

	assert.True(t, app.CanRetry())
	app.RetryCount = app.MaxRetries
	assert.False(t, app.CanRetry())
}
