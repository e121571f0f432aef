// Package orchestrator drives one application attempt end to end:
// claim the job, classify its ATS vendor, resolve redirect hops,
// dispatch the right filling strategy and land the job in a terminal
// status. It owns every job status transition after discovery.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/classify"
	"github.com/jonathan/auto-applier/internal/fillers"
	"github.com/jonathan/auto-applier/internal/notify"
	"github.com/jonathan/auto-applier/internal/runs"
	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

const (
	navigateTimeout = 45 * time.Second
	settleWindow    = 3 * time.Second
	popupWait       = 5 * time.Second

	// maxRedirectHops bounds the landing-page click-through chain.
	// Aggregator sites occasionally chain two interstitials; anything
	// deeper is treated as unresolvable and handed to the universal
	// strategy on whatever page we ended up on.
	maxRedirectHops = 2

	// upgradeConfidence is the minimum re-classification confidence
	// required to switch the job's vendor after a redirect hop.
	upgradeConfidence = 0.6
)

// Outcome is the terminal result of one application run.
type Outcome string

const (
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeNeedsReview    Outcome = "needs_review"
	OutcomeFailed         Outcome = "failed"
	OutcomeExpired        Outcome = "expired"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeAlreadyRunning Outcome = "already_running"
)

// Result reports what happened to one job.
type Result struct {
	JobID   string       `json:"job_id"`
	Outcome Outcome      `json:"outcome"`
	Vendor  types.Vendor `json:"vendor,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

// PageFactory creates isolated browser pages, one per run. Satisfied by
// browser.Manager; tests substitute scripted pages.
type PageFactory interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Options tunes orchestrator behavior.
type Options struct {
	// ReviewMode withholds final submission: filled applications park
	// in needs_review for a human instead of being submitted.
	ReviewMode bool
	// SaveScreenshots captures the page after filling.
	SaveScreenshots bool
}

// Orchestrator coordinates one application attempt at a time per job.
// Safe for concurrent use across distinct jobs.
type Orchestrator struct {
	store    store.Store
	registry *runs.Registry
	fillers  *fillers.Registry
	pages    PageFactory
	notifier notify.Notifier
	opts     Options
}

// New wires an orchestrator. The notifier may be nil; it is replaced by
// a no-op.
func New(st store.Store, reg *runs.Registry, fr *fillers.Registry, pages PageFactory, notifier notify.Notifier, opts Options) *Orchestrator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Orchestrator{
		store:    st,
		registry: reg,
		fillers:  fr,
		pages:    pages,
		notifier: notifier,
		opts:     opts,
	}
}

// Abort requests cooperative cancellation of a running job. The run
// observes the flag at its next checkpoint; Abort never interrupts an
// in-flight browser call. Returns false when no run is active.
func (o *Orchestrator) Abort(jobID string) bool {
	return o.registry.RequestCancel(jobID)
}

// RunStatus returns the live run snapshot for pollers.
func (o *Orchestrator) RunStatus(jobID string) (runs.Status, bool) {
	return o.registry.Status(jobID)
}

// ProcessJob runs the full pipeline for one job: claim, navigate,
// classify, resolve redirects, fill, land in a terminal status. The
// returned error covers infrastructure faults only; domain failures
// (expired posting, broken form) come back as outcomes with the job
// already moved to the matching status.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string) (Result, error) {
	run, err := o.registry.Register(jobID)
	if errors.Is(err, runs.ErrAlreadyRunning) {
		return Result{JobID: jobID, Outcome: OutcomeAlreadyRunning}, nil
	}
	if err != nil {
		return Result{JobID: jobID}, fmt.Errorf("failed to register run: %w", err)
	}
	return o.processRun(ctx, run, jobID)
}

// Launch claims the job synchronously and runs the pipeline in the
// background. A duplicate run surfaces as ErrAlreadyRunning to the
// caller before any goroutine starts, so two concurrent triggers can
// never both be told the run started.
func (o *Orchestrator) Launch(jobID string) error {
	run, err := o.registry.Register(jobID)
	if err != nil {
		return err
	}
	go func() {
		if _, err := o.processRun(context.Background(), run, jobID); err != nil {
			log.Printf("[ORCH] %s run failed: %v", jobID, err)
		}
	}()
	return nil
}

// processRun owns the registered run from here on: the registry entry
// is released on every exit path.
func (o *Orchestrator) processRun(ctx context.Context, run *runs.Run, jobID string) (Result, error) {
	defer o.registry.Release(run)

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return Result{JobID: jobID}, fmt.Errorf("failed to load job: %w", err)
	}

	// Remember where the job came from so a cancelled run can put it
	// back exactly, not reset it to new.
	preStatus := job.Status
	if err := o.store.UpdateJobStatus(ctx, job.ID, types.JobStatusInProgress); err != nil {
		return Result{JobID: jobID}, fmt.Errorf("failed to claim job: %w", err)
	}

	app := types.NewApplication(job)
	app.Start()
	if err := o.store.AddApplication(ctx, app); err != nil {
		return Result{JobID: jobID}, fmt.Errorf("failed to record application: %w", err)
	}

	res, err := o.processClaimed(ctx, run, job, app, preStatus)
	if err != nil {
		return res, err
	}

	if err := o.store.UpdateApplication(ctx, app); err != nil {
		return res, fmt.Errorf("failed to persist application: %w", err)
	}
	return res, nil
}

// processClaimed runs the pipeline after the job is claimed. The job
// status and application record reflect the outcome on return.
func (o *Orchestrator) processClaimed(ctx context.Context, run *runs.Run, job *types.Job, app *types.Application, preStatus types.JobStatus) (Result, error) {
	if run.Cancelled() {
		return o.cancelReset(ctx, job, app, preStatus)
	}

	page, err := o.pages.NewPage(ctx)
	if err != nil {
		return o.fail(ctx, job, app, fmt.Sprintf("browser unavailable: %v", err))
	}
	// resolveRedirects may swap the page for a popup tab; the deferred
	// close always releases whichever tab we ended on.
	defer func() { _ = page.Close() }()

	status, err := page.Navigate(ctx, job.TargetURL(), navigateTimeout)
	if err != nil {
		var navErr *browser.NavigationError
		if errors.As(err, &navErr) && navErr.Unrecoverable() {
			return o.expire(ctx, job, app, navErr.Error())
		}
		return o.fail(ctx, job, app, fmt.Sprintf("navigation failed: %v", err))
	}
	app.AddLog("navigated", fmt.Sprintf("loaded %s (status %d)", job.TargetURL(), status))
	_ = page.WaitStable(ctx, settleWindow)

	// A vendor tag assigned at discovery is authoritative; only an
	// untagged job is classified from the live page. Redirect hops may
	// still upgrade the tag below, gated on confidence.
	result := classify.Result{Vendor: job.Vendor, Confidence: 1}
	if job.Vendor == types.VendorUnknown {
		content, err := page.Content(ctx)
		if err != nil {
			return o.fail(ctx, job, app, fmt.Sprintf("failed to read page: %v", err))
		}
		result = classify.Classify(job.TargetURL(), content)
		log.Printf("[ORCH] %s classified as %s (%.2f)", job.ID, result.Vendor, result.Confidence)
		app.AddLog("classified", fmt.Sprintf("%s (confidence %.2f)", result.Vendor, result.Confidence))
	} else {
		log.Printf("[ORCH] %s vendor %s (stored)", job.ID, job.Vendor)
		app.AddLog("classified", fmt.Sprintf("reusing stored vendor %s", job.Vendor))
	}

	if run.Cancelled() {
		return o.cancelReset(ctx, job, app, preStatus)
	}

	page, result, err = o.resolveRedirects(ctx, page, job, app, result)
	if err != nil {
		return o.fail(ctx, job, app, fmt.Sprintf("redirect resolution failed: %v", err))
	}

	if result.Vendor != job.Vendor {
		job.Vendor = result.Vendor
		app.Vendor = result.Vendor
		if err := o.store.SaveJob(ctx, job); err != nil {
			return Result{JobID: job.ID}, fmt.Errorf("failed to persist vendor: %w", err)
		}
	}

	if run.Cancelled() {
		return o.cancelReset(ctx, job, app, preStatus)
	}

	filler := o.pickFiller(ctx, page, result.Vendor)
	app.AddLog("strategy", filler.Name())

	filled, err := filler.Fill(ctx, page, job, app)
	if o.opts.SaveScreenshots {
		if shot, serr := page.Screenshot(ctx, job.ID); serr == nil {
			app.Screenshots = append(app.Screenshots, shot)
		}
	}
	if err != nil {
		return o.fail(ctx, job, app, fmt.Sprintf("%s strategy failed: %v", filler.Name(), err))
	}
	if !filled {
		return o.fail(ctx, job, app, fmt.Sprintf("%s strategy found no fillable form", filler.Name()))
	}

	if run.Cancelled() {
		return o.cancelReset(ctx, job, app, preStatus)
	}

	return o.finish(ctx, page, job, app)
}

// resolveRedirects walks the job through aggregator landing pages until
// it reaches a terminal ATS vendor or exhausts the hop budget. After the
// budget the universal strategy takes whatever page we landed on.
func (o *Orchestrator) resolveRedirects(ctx context.Context, page browser.Page, job *types.Job, app *types.Application, result classify.Result) (browser.Page, classify.Result, error) {
	for hop := 0; result.Vendor == types.VendorRedirector && hop < maxRedirectHops; hop++ {
		before, err := page.URL(ctx)
		if err != nil {
			return page, result, fmt.Errorf("failed to read page URL: %w", err)
		}

		// The new-tab listener must be armed before the click runs: the
		// apply control opens its tab synchronously with the click, and
		// a listener registered afterwards misses it. ErrNoPopup means
		// the click navigated the same tab instead.
		var clicked bool
		popup, err := page.ExpectPopup(ctx, popupWait, func() error {
			var ferr error
			clicked, ferr = o.fillers.Redirect().Fill(ctx, page, job, app)
			return ferr
		})
		if err != nil && !errors.Is(err, browser.ErrNoPopup) {
			return page, result, fmt.Errorf("hop %d click failed: %w", hop+1, err)
		}
		if !clicked {
			// Nothing to click; the landing page is the form.
			break
		}
		if popup != nil {
			_ = page.Close()
			page = popup
		}
		_ = page.WaitStable(ctx, settleWindow)

		after, err := page.URL(ctx)
		if err != nil {
			return page, result, fmt.Errorf("failed to read page URL: %w", err)
		}
		if after == before {
			break
		}

		content, err := page.Content(ctx)
		if err != nil {
			return page, result, fmt.Errorf("failed to read page after hop: %w", err)
		}
		rescored := classify.Classify(after, content)
		app.AddLog("redirect_hop", fmt.Sprintf("%s -> %s, reclassified %s (%.2f)",
			truncateURL(before), truncateURL(after), rescored.Vendor, rescored.Confidence))

		if rescored.Vendor != result.Vendor && rescored.Confidence > upgradeConfidence {
			result = rescored
		}
	}
	return page, result, nil
}

// pickFiller resolves the strategy for the vendor, falling through to
// the universal strategy when the vendor-specific one does not
// recognize the page. A still-redirector vendor after hop exhaustion
// goes straight to universal.
func (o *Orchestrator) pickFiller(ctx context.Context, page browser.Page, vendor types.Vendor) fillers.Filler {
	if vendor == types.VendorRedirector {
		return o.fillers.Universal()
	}
	f := o.fillers.ForVendor(vendor)
	if !f.CanHandle(ctx, page) {
		return o.fillers.Universal()
	}
	return f
}

// finish lands a successfully filled application in its terminal
// status: needs_review when review mode is on or questions were
// flagged, submitted otherwise.
func (o *Orchestrator) finish(ctx context.Context, page browser.Page, job *types.Job, app *types.Application) (Result, error) {
	if flagged := app.QuestionsNeedingReview(); len(flagged) > 0 {
		reasons := make([]string, 0, len(flagged))
		for _, q := range flagged {
			reasons = append(reasons, q.Text)
		}
		return o.review(ctx, page, job, app, "questions need answers: "+strings.Join(reasons, "; "))
	}
	if o.opts.ReviewMode {
		return o.review(ctx, page, job, app, "review mode: form filled, submission withheld")
	}

	app.Complete()
	if err := o.store.MarkJobApplied(ctx, job.ID, time.Now()); err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("failed to mark job applied: %w", err)
	}
	job.MarkApplied()
	if err := o.notifier.Completed(ctx, job.Title, job.Company, job.URL); err != nil {
		log.Printf("[ORCH] notification failed: %v", err)
	}
	log.Printf("[ORCH] %s submitted (%s at %s)", job.ID, job.Title, job.Company)
	return Result{JobID: job.ID, Outcome: OutcomeSubmitted, Vendor: job.Vendor}, nil
}

func (o *Orchestrator) review(ctx context.Context, page browser.Page, job *types.Job, app *types.Application, reason string) (Result, error) {
	app.RequestReview(reason)
	if err := o.store.UpdateJobStatus(ctx, job.ID, types.JobStatusNeedsReview); err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("failed to park job for review: %w", err)
	}
	job.Status = types.JobStatusNeedsReview

	url := job.URL
	if current, err := page.URL(ctx); err == nil && current != "" {
		url = current
	}
	if err := o.notifier.NeedsReview(ctx, job.Title, job.Company, reason, url); err != nil {
		log.Printf("[ORCH] notification failed: %v", err)
	}
	log.Printf("[ORCH] %s needs review: %s", job.ID, reason)
	return Result{JobID: job.ID, Outcome: OutcomeNeedsReview, Vendor: job.Vendor, Detail: reason}, nil
}

func (o *Orchestrator) fail(ctx context.Context, job *types.Job, app *types.Application, msg string) (Result, error) {
	app.Fail(msg)
	if err := o.store.UpdateJobStatus(ctx, job.ID, types.JobStatusFailed); err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("failed to mark job failed: %w", err)
	}
	job.Status = types.JobStatusFailed
	if err := o.notifier.Failed(ctx, job.Title, job.Company, msg); err != nil {
		log.Printf("[ORCH] notification failed: %v", err)
	}
	log.Printf("[ORCH] %s failed: %s", job.ID, msg)
	return Result{JobID: job.ID, Outcome: OutcomeFailed, Vendor: job.Vendor, Detail: msg}, nil
}

// expire marks a job whose posting is gone. Expired jobs are never
// retried and produce no failure notification; dead postings are
// routine, not actionable.
func (o *Orchestrator) expire(ctx context.Context, job *types.Job, app *types.Application, msg string) (Result, error) {
	app.Skip("posting unreachable: " + msg)
	if err := o.store.UpdateJobStatus(ctx, job.ID, types.JobStatusExpired); err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("failed to mark job expired: %w", err)
	}
	job.Status = types.JobStatusExpired
	log.Printf("[ORCH] %s expired: %s", job.ID, msg)
	return Result{JobID: job.ID, Outcome: OutcomeExpired, Vendor: job.Vendor, Detail: msg}, nil
}

// cancelReset unwinds a cancelled run: the job goes back to the status
// it had before the run claimed it, the application attempt keeps its
// non-terminal cancelled disposition, and nobody is notified.
func (o *Orchestrator) cancelReset(ctx context.Context, job *types.Job, app *types.Application, preStatus types.JobStatus) (Result, error) {
	app.Cancel("run cancelled")
	if err := o.store.UpdateJobStatus(ctx, job.ID, preStatus); err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("failed to reset cancelled job: %w", err)
	}
	job.Status = preStatus
	log.Printf("[ORCH] %s cancelled, reset to %s", job.ID, preStatus)
	return Result{JobID: job.ID, Outcome: OutcomeCancelled, Vendor: job.Vendor}, nil
}

func truncateURL(u string) string {
	if len(u) > 80 {
		return u[:77] + "..."
	}
	return u
}
