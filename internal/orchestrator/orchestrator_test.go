package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/fillers"
	"github.com/jonathan/auto-applier/internal/runs"
	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

const plainFormHTML = `<html><body><form>
	<label for="first">First Name</label><input id="first" type="text">
	<label for="email">Email</label><input id="email" type="email">
	<button type="submit">Submit</button>
</form></body></html>`

const greenhouseFormHTML = `<html><body>
<form id="application_form" action="https://boards.greenhouse.io/acme">
	<label for="email">Email</label><input id="email" type="email">
	<button type="submit">Submit</button>
</form>
</body></html>`

func testProfile() *applicant.Applicant {
	return &applicant.Applicant{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+1 555 000 1234",
		Address:   applicant.Address{City: "Brooklyn", State: "NY", Country: "United States"},
		WorkAuth:  applicant.WorkAuthorization{AuthorizedUS: true},
	}
}

type harness struct {
	orch     *Orchestrator
	store    *store.Memory
	registry *runs.Registry
	notifier *recordingNotifier
}

func newHarness(t *testing.T, factory *pageFactory, opts Options) *harness {
	t.Helper()
	mem := store.NewMemory()
	reg := runs.NewRegistry()
	notifier := &recordingNotifier{}
	fr := fillers.NewRegistry(testProfile(), nil, fillers.Options{Submit: !opts.ReviewMode})
	return &harness{
		orch:     New(mem, reg, fr, factory, notifier, opts),
		store:    mem,
		registry: reg,
		notifier: notifier,
	}
}

func (h *harness) addJob(t *testing.T, url string) *types.Job {
	t.Helper()
	job := types.NewJob("Backend Engineer", "Acme", url, types.SourceManual)
	require.NoError(t, h.store.SaveJob(context.Background(), job))
	return job
}

func TestProcessJob_SubmitsPlainForm(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	page := newScriptedPage()
	page.htmlByURL[url] = plainFormHTML
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, types.VendorCustom, res.Vendor)

	assert.Equal(t, "Ada", page.filled["#first"])
	assert.Equal(t, "ada@example.com", page.filled["#email"])
	assert.Contains(t, page.clicked, "button[type='submit']")
	assert.True(t, page.closed)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusApplied, saved.Status)
	require.NotNil(t, saved.AppliedAt, "applied jobs carry a timestamp")

	assert.Equal(t, []string{"Backend Engineer"}, h.notifier.completed)
	assert.Zero(t, h.registry.Active(), "run entry is released")
}

func TestProcessJob_ReviewModeWithholdsSubmission(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	page := newScriptedPage()
	page.htmlByURL[url] = plainFormHTML
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{ReviewMode: true})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsReview, res.Outcome)

	assert.NotEmpty(t, page.filled, "the form is still filled in review mode")
	assert.Empty(t, page.clicked, "submit is never clicked in review mode")

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusNeedsReview, saved.Status)
	assert.Nil(t, saved.AppliedAt)
	assert.Equal(t, []string{"Backend Engineer"}, h.notifier.reviews)
}

func TestProcessJob_GatedQuestionForcesReview(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	html := `<html><body><form>
		<label for="email">Email</label><input id="email" type="email">
		<label for="salary">Salary expectations</label><input id="salary" type="text" required>
		<button type="submit">Submit</button>
	</form></body></html>`

	page := newScriptedPage()
	page.htmlByURL[url] = html
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsReview, res.Outcome)
	assert.Contains(t, res.Detail, "Salary expectations")
	assert.Empty(t, page.clicked)
}

func TestProcessJob_DeadPostingExpires(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/gone"

	page := newScriptedPage()
	page.statusByURL[url] = 404

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, res.Outcome)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusExpired, saved.Status)
	assert.Empty(t, h.notifier.failed, "expired postings are routine, not notified")
}

func TestProcessJob_DeadHostExpires(t *testing.T) {
	ctx := context.Background()
	url := "https://gone.example/jobs/1"

	page := newScriptedPage()
	page.navErrByURL[url] = errors.New("page load error net::ERR_NAME_NOT_RESOLVED")

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, res.Outcome)
}

func TestProcessJob_TransientNavigationErrorFails(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	page := newScriptedPage()
	page.statusByURL[url] = 403

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, saved.Status)
	assert.Equal(t, []string{"Backend Engineer"}, h.notifier.failed)
}

func TestProcessJob_NoFillableFormFails(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	page := newScriptedPage()
	page.htmlByURL[url] = `<html><body><h1>Position filled</h1></body></html>`

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestProcessJob_DuplicateRunRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &pageFactory{}, Options{})
	job := h.addJob(t, "https://careers.acme.dev/jobs/1")

	run, err := h.registry.Register(job.ID)
	require.NoError(t, err)
	defer h.registry.Release(run)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRunning, res.Outcome)

	// The original claim is untouched.
	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusNew, saved.Status)
}

func TestProcessJob_CancelResetsToPreRunStatus(t *testing.T) {
	ctx := context.Background()
	url := "https://careers.acme.dev/jobs/1"

	page := newScriptedPage()
	page.htmlByURL[url] = plainFormHTML
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)
	require.NoError(t, h.store.UpdateJobStatus(ctx, job.ID, types.JobStatusQueued))

	// Cancel mid-run, after navigation but before classification.
	page.afterStable = func() {
		assert.True(t, h.orch.Abort(job.ID))
	}

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, res.Outcome)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, saved.Status, "cancelled runs restore the pre-run status")
	assert.Empty(t, page.filled, "cancellation preempts filling")
	assert.Empty(t, h.notifier.completed)
	assert.Empty(t, h.notifier.failed)
	assert.Zero(t, h.registry.Active())

	app := latestApplication(t, h.store, job.ID)
	assert.Equal(t, types.ApplicationCancelled, app.Status,
		"a cancelled attempt is never finalized as terminal")
	assert.Nil(t, app.CompletedAt)
}

func TestProcessJob_StoredVendorPreserved(t *testing.T) {
	ctx := context.Background()
	// A custom careers domain with no vendor signature in URL or HTML.
	url := "https://apply.acme.dev/careers/42"

	page := newScriptedPage()
	page.htmlByURL[url] = plainFormHTML
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := types.NewJob("Backend Engineer", "Acme", url, types.SourceGreenhouse)
	job.Vendor = types.VendorGreenhouse
	require.NoError(t, h.store.SaveJob(ctx, job))

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, types.VendorGreenhouse, res.Vendor)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VendorGreenhouse, saved.Vendor,
		"a discovery-assigned vendor tag is never downgraded by page heuristics")
	assert.Equal(t, "ada@example.com", page.filled["#email"],
		"the universal strategy still fills the unrecognized page")
}

func TestLaunch_ClaimsBeforeReturning(t *testing.T) {
	url := "https://careers.acme.dev/jobs/1"
	gate := make(chan struct{})

	page := newScriptedPage()
	page.htmlByURL[url] = plainFormHTML
	page.clickOK["button[type='submit']"] = true
	page.afterStable = func() { <-gate }

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, url)

	require.NoError(t, h.orch.Launch(job.ID))
	assert.ErrorIs(t, h.orch.Launch(job.ID), runs.ErrAlreadyRunning,
		"the claim is visible before the background run makes progress")

	close(gate)
	require.Eventually(t, func() bool { return h.registry.Active() == 0 },
		2*time.Second, 10*time.Millisecond)

	saved, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusApplied, saved.Status)
}

func TestProcessJob_RedirectHopUpgradesVendor(t *testing.T) {
	ctx := context.Background()
	landing := "https://builtin.com/job/123"
	form := "https://boards.greenhouse.io/acme/jobs/1"

	page := newScriptedPage()
	page.htmlByURL[landing] = `<html><body><a class="apply-button" href="` + form + `">Apply</a></body></html>`
	page.htmlByURL[form] = greenhouseFormHTML
	page.clickOK[".apply-button"] = true
	page.clickTarget[".apply-button"] = form
	page.clickOK["button[type='submit']"] = true

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, landing)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, types.VendorGreenhouse, res.Vendor)

	saved, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.VendorGreenhouse, saved.Vendor, "resolved vendor is persisted")
	assert.Contains(t, page.clicked, ".apply-button")
	assert.Equal(t, "ada@example.com", page.filled["#email"])
}

func TestProcessJob_RedirectPopupTakesOver(t *testing.T) {
	ctx := context.Background()
	landing := "https://builtin.com/job/123"
	form := "https://jobs.lever.co/acme/1"

	popup := newScriptedPage()
	popup.current = form
	popup.htmlByURL[form] = `<html><body>
		<form action="https://jobs.lever.co/acme/1/apply">
			<label for="email">Email</label><input id="email" type="email">
			<button type="submit">Submit</button>
		</form></body></html>`
	popup.clickOK["button[type='submit']"] = true

	page := newScriptedPage()
	page.htmlByURL[landing] = `<html><body><a class="apply-button">Apply</a></body></html>`
	page.clickOK[".apply-button"] = true
	page.popup = popup

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, landing)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, types.VendorLever, res.Vendor)

	assert.True(t, page.closed, "the landing tab is released after the popup takes over")
	assert.True(t, popup.closed)
	assert.Equal(t, "ada@example.com", popup.filled["#email"])
}

func TestProcessJob_HopBudgetFallsBackToUniversal(t *testing.T) {
	ctx := context.Background()
	first := "https://builtin.com/job/1"
	second := "https://builtinnyc.com/job/2"

	// Each hop lands on another aggregator page; the second one happens
	// to carry a plain form the universal strategy can work with.
	page := newScriptedPage()
	page.htmlByURL[first] = `<html><body><a class="apply-button">Apply</a></body></html>`
	page.htmlByURL[second] = `<html><body><a class="apply-button">Apply</a><form>
		<label for="email">Email</label><input id="email" type="email">
		<button type="submit">Submit</button>
	</form></body></html>`
	page.clickOK[".apply-button"] = true
	page.clickOK["button[type='submit']"] = true
	page.clickTarget[".apply-button"] = second

	h := newHarness(t, &pageFactory{pages: []*scriptedPage{page}}, Options{})
	job := h.addJob(t, first)

	res, err := h.orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, types.VendorRedirector, res.Vendor,
		"hop budget exhausted, vendor stays redirector and universal takes the page")
	assert.Equal(t, "ada@example.com", page.filled["#email"])

	app := latestApplication(t, h.store, job.ID)
	assert.Contains(t, logActions(app), "strategy")
}

func TestAbort_NoActiveRun(t *testing.T) {
	h := newHarness(t, &pageFactory{}, Options{})
	assert.False(t, h.orch.Abort("nope"))

	_, active := h.orch.RunStatus("nope")
	assert.False(t, active)
}

func latestApplication(t *testing.T, mem *store.Memory, jobID string) *types.Application {
	t.Helper()
	apps, err := mem.ListApplicationsByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.NotEmpty(t, apps)
	return apps[len(apps)-1]
}

func logActions(app *types.Application) []string {
	out := make([]string, 0, len(app.Logs))
	for _, l := range app.Logs {
		out = append(out, l.Action)
	}
	return out
}
