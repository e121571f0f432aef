// Package types defines the core data model shared across the application
// pipeline: jobs, applications, vendors, and their status enums.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle status of a discovered job posting.
type JobStatus string

const (
	// JobStatusNew is a freshly discovered job, not yet attempted.
	JobStatusNew JobStatus = "new"
	// JobStatusQueued is a job explicitly queued for the next run.
	JobStatusQueued JobStatus = "queued"
	// JobStatusInProgress is a job currently claimed by a run.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusApplied is a job whose application was submitted.
	JobStatusApplied JobStatus = "applied"
	// JobStatusSkipped is a job skipped by the user or a filter.
	JobStatusSkipped JobStatus = "skipped"
	// JobStatusFailed is a job whose application attempt failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusNeedsReview is a job paused for human confirmation.
	JobStatusNeedsReview JobStatus = "needs_review"
	// JobStatusExpired is a job whose posting is no longer reachable.
	JobStatusExpired JobStatus = "expired"
	// JobStatusRejected is a job soft-deleted by the user.
	JobStatusRejected JobStatus = "rejected"
)

// JobSource identifies where a job posting was discovered.
type JobSource string

const (
	SourceGreenhouse JobSource = "greenhouse"
	SourceLever      JobSource = "lever"
	SourceBuiltin    JobSource = "builtin"
	SourceManual     JobSource = "manual"
	SourceOther      JobSource = "other"
)

// Job is a discovered job posting. Jobs are created by the discovery
// subsystem and mutated exclusively by the orchestrator once claimed.
// Jobs are never deleted, only marked rejected.
type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location,omitempty"`
	URL          string    `json:"url"`
	ApplyURL     string    `json:"apply_url,omitempty"`
	Source       JobSource `json:"source"`
	Vendor       Vendor    `json:"vendor"`
	Status       JobStatus `json:"status"`
	DiscoveredAt time.Time `json:"discovered_at"`
	// AppliedAt is set if and only if Status is JobStatusApplied.
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
}

// NewJob creates a job with a fresh ID in the initial status.
func NewJob(title, company, url string, source JobSource) *Job {
	return &Job{
		ID:           uuid.NewString(),
		Title:        title,
		Company:      company,
		URL:          url,
		Source:       source,
		Vendor:       VendorUnknown,
		Status:       JobStatusNew,
		DiscoveredAt: time.Now(),
	}
}

// Actionable reports whether the job is eligible to be claimed by a run.
func (j *Job) Actionable() bool {
	return j.Status == JobStatusNew || j.Status == JobStatusQueued
}

// TargetURL returns the direct apply URL when present, the canonical URL otherwise.
func (j *Job) TargetURL() string {
	if j.ApplyURL != "" {
		return j.ApplyURL
	}
	return j.URL
}

// MarkApplied transitions the job to applied and stamps AppliedAt.
// This is the only place AppliedAt is set, preserving the invariant
// that the timestamp exists exactly when the status is applied.
func (j *Job) MarkApplied() {
	now := time.Now()
	j.Status = JobStatusApplied
	j.AppliedAt = &now
}

func (j *Job) String() string {
	return fmt.Sprintf("%s at %s [%s]", j.Title, j.Company, j.Status)
}
