package types

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the status of one application attempt.
// Submitted, failed and skipped are terminal.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationInProgress  ApplicationStatus = "in_progress"
	ApplicationNeedsReview ApplicationStatus = "needs_review"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationFailed      ApplicationStatus = "failed"
	ApplicationSkipped     ApplicationStatus = "skipped"
	// ApplicationCancelled is a non-terminal disposition: the run was
	// cancelled before reaching an outcome and the job may be retried.
	ApplicationCancelled ApplicationStatus = "cancelled"
)

// QuestionKind is the form control type of an application question.
type QuestionKind string

const (
	QuestionText     QuestionKind = "text"
	QuestionTextarea QuestionKind = "textarea"
	QuestionSelect   QuestionKind = "select"
	QuestionRadio    QuestionKind = "radio"
	QuestionCheckbox QuestionKind = "checkbox"
	QuestionFile     QuestionKind = "file"
)

// AnsweredBy records who produced the answer to a question.
type AnsweredBy string

const (
	AnsweredAuto  AnsweredBy = "auto"
	AnsweredLLM   AnsweredBy = "llm"
	AnsweredHuman AnsweredBy = "human"
)

// ApplicationQuestion is a form question encountered while filling.
// Created by the filling strategy; the orchestrator reads the
// NeedsReview flags to decide whether to gate for a human.
type ApplicationQuestion struct {
	FieldName    string       `json:"field_name,omitempty"`
	Text         string       `json:"text"`
	Kind         QuestionKind `json:"kind"`
	Required     bool         `json:"required"`
	Options      []string     `json:"options,omitempty"`
	Answer       string       `json:"answer,omitempty"`
	Answered     bool         `json:"answered"`
	AnsweredBy   AnsweredBy   `json:"answered_by,omitempty"`
	NeedsReview  bool         `json:"needs_review"`
	ReviewReason string       `json:"review_reason,omitempty"`
}

// ApplicationLog is one append-only progress entry.
type ApplicationLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	Screenshot string    `json:"screenshot,omitempty"`
}

// Application is one attempt to apply to a job. Job fields are
// denormalized at creation time for audit, so the record stays
// meaningful even if the job is later reclassified.
type Application struct {
	ID       string `json:"id"`
	JobID    string `json:"job_id"`
	JobTitle string `json:"job_title"`
	Company  string `json:"company"`
	JobURL   string `json:"job_url"`
	Vendor   Vendor `json:"vendor"`

	Status ApplicationStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Questions []ApplicationQuestion `json:"questions,omitempty"`
	Logs      []ApplicationLog      `json:"logs,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`
	MaxRetries   int    `json:"max_retries"`

	ResumeUploaded bool     `json:"resume_uploaded"`
	Screenshots    []string `json:"screenshots,omitempty"`
}

// NewApplication creates a pending application for a job, denormalizing
// the job fields for audit.
func NewApplication(job *Job) *Application {
	return &Application{
		ID:         uuid.NewString(),
		JobID:      job.ID,
		JobTitle:   job.Title,
		Company:    job.Company,
		JobURL:     job.URL,
		Vendor:     job.Vendor,
		Status:     ApplicationPending,
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// Start marks the application in progress.
func (a *Application) Start() {
	now := time.Now()
	a.Status = ApplicationInProgress
	a.StartedAt = &now
	a.AddLog("started", "application started")
}

// Complete marks the application submitted.
func (a *Application) Complete() {
	now := time.Now()
	a.Status = ApplicationSubmitted
	a.CompletedAt = &now
	a.AddLog("submitted", "application submitted")
}

// Fail marks the application failed and captures the error message.
func (a *Application) Fail(errMsg string) {
	now := time.Now()
	a.Status = ApplicationFailed
	a.ErrorMessage = errMsg
	a.CompletedAt = &now
	a.AddLog("failed", errMsg)
}

// RequestReview pauses the application for human confirmation.
func (a *Application) RequestReview(reason string) {
	a.Status = ApplicationNeedsReview
	a.AddLog("needs_review", reason)
}

// Skip marks the application skipped, e.g. when the posting turns out
// to be unreachable.
func (a *Application) Skip(reason string) {
	now := time.Now()
	a.Status = ApplicationSkipped
	a.CompletedAt = &now
	a.AddLog("skipped", reason)
}

// Cancel records a cancelled run. Unlike the terminal statuses it sets
// no completion timestamp: the attempt was abandoned, not finished.
func (a *Application) Cancel(reason string) {
	a.Status = ApplicationCancelled
	a.AddLog("cancelled", reason)
}

// AddLog appends a progress entry. Logs are append-only.
func (a *Application) AddLog(action, details string) {
	a.Logs = append(a.Logs, ApplicationLog{
		Timestamp: time.Now(),
		Action:    action,
		Details:   details,
	})
}

// AddQuestion records a question encountered during filling and returns
// a pointer into the slice so the caller can fill in the answer.
func (a *Application) AddQuestion(q ApplicationQuestion) *ApplicationQuestion {
	a.Questions = append(a.Questions, q)
	return &a.Questions[len(a.Questions)-1]
}

// QuestionsNeedingReview returns the questions flagged for a human.
func (a *Application) QuestionsNeedingReview() []ApplicationQuestion {
	var out []ApplicationQuestion
	for _, q := range a.Questions {
		if q.NeedsReview {
			out = append(out, q)
		}
	}
	return out
}

// CanRetry reports whether the filling strategy may retry a flaky step.
// These are strategy-internal retries, not orchestrator-level retries.
func (a *Application) CanRetry() bool {
	return a.RetryCount < a.MaxRetries
}
