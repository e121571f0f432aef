// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/auto-applier/internal/orchestrator"
	"github.com/jonathan/auto-applier/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a human-readable summary of one job posting.
func (p *Printer) PrintJob(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", job.Location))
	}
	sb.WriteString(fmt.Sprintf("Vendor:   %s\n", job.Vendor))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("URL:      %s", job.URL))

	p.printBox("JOB", sb.String())
}

// PrintOutcome outputs the terminal result of one application run.
func (p *Printer) PrintOutcome(res orchestrator.Result) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:  %s\n", res.Outcome))
	if res.Vendor != "" {
		sb.WriteString(fmt.Sprintf("Vendor:   %s\n", res.Vendor))
	}
	if res.Detail != "" {
		sb.WriteString(fmt.Sprintf("Detail:   %s\n", res.Detail))
	}
	sb.WriteString(fmt.Sprintf("Job:      %s", res.JobID))

	p.printBox("APPLICATION RESULT", sb.String())
}

// PrintReviewQuestions outputs the questions a human must answer before
// the application can be submitted.
func (p *Printer) PrintReviewQuestions(app *types.Application) {
	flagged := app.QuestionsNeedingReview()
	if len(flagged) == 0 {
		p.printBox("REVIEW", "✅ NO QUESTIONS NEED REVIEW")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d questions need answers:\n\n", len(flagged)))

	count := min(len(flagged), maxItemsToShow)
	for i := 0; i < count; i++ {
		q := flagged[i]
		text := q.Text
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", text))
		if q.ReviewReason != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", q.ReviewReason))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(flagged) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more questions", len(flagged)-maxItemsToShow))
	}

	p.printBox("QUESTIONS NEEDING REVIEW", sb.String())
}

// statusOrder pins the display order of job statuses in PrintStats.
var statusOrder = []types.JobStatus{
	types.JobStatusNew,
	types.JobStatusQueued,
	types.JobStatusInProgress,
	types.JobStatusNeedsReview,
	types.JobStatusApplied,
	types.JobStatusFailed,
	types.JobStatusExpired,
	types.JobStatusSkipped,
	types.JobStatusRejected,
}

// PrintStats outputs per-status job counts.
func (p *Printer) PrintStats(counts map[types.JobStatus]int) {
	var sb strings.Builder
	total := 0
	for i, status := range statusOrder {
		n := counts[status]
		total += n
		sb.WriteString(fmt.Sprintf("%-13s %d", string(status)+":", n))
		if i < len(statusOrder)-1 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n\nTotal:        %d", total))

	p.printBox("JOB PIPELINE", sb.String())
}

// PrintSessionSummary outputs end-of-session statistics.
func (p *Printer) PrintSessionSummary(res orchestrator.SessionResult) {
	var sb strings.Builder
	if res.Discovered > 0 {
		sb.WriteString(fmt.Sprintf("Discovered:   %d new jobs\n", res.Discovered))
	}
	sb.WriteString(fmt.Sprintf("Processed:    %d\n", res.Processed))
	sb.WriteString(fmt.Sprintf("Submitted:    %d\n", res.Submitted))
	sb.WriteString(fmt.Sprintf("Needs review: %d\n", res.NeedsReview))
	sb.WriteString(fmt.Sprintf("Failed:       %d\n", res.Failed))
	sb.WriteString(fmt.Sprintf("Expired:      %d", res.Expired))
	if res.Cancelled > 0 {
		sb.WriteString(fmt.Sprintf("\nCancelled:    %d", res.Cancelled))
	}

	p.printBox("SESSION SUMMARY", sb.String())
}
