package fillers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/auto-applier/internal/types"
)

const basicFormHTML = `<html><body>
<form id="apply">
	<label for="first">First Name</label>
	<input id="first" name="first_name" type="text" required>
	<label for="last">Last Name</label>
	<input id="last" name="last_name" type="text" required>
	<label for="email">Email</label>
	<input id="email" name="email" type="email" required>
	<input name="phone" type="tel" placeholder="Phone number">
	<input type="hidden" name="token" value="x">
	<button type="submit">Submit application</button>
</form>
</body></html>`

func TestUniversal_FillBasicForm(t *testing.T) {
	page := newFakePage(basicFormHTML)
	page.clickOK["button[type='submit']"] = true

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: true})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "Ada", page.filled["#first"])
	assert.Equal(t, "Lovelace", page.filled["#last"])
	assert.Equal(t, "ada@example.com", page.filled["#email"])
	assert.Equal(t, "+1 555 000 1234", page.filled[`input[name="phone"]`])
	assert.NotContains(t, page.filled, `input[name="token"]`, "hidden inputs are skipped")

	assert.Contains(t, page.clicked, "button[type='submit']")
	assert.Len(t, app.Questions, 4)
	assert.Empty(t, app.QuestionsNeedingReview())
}

func TestUniversal_ReviewQuestionBlocksSubmit(t *testing.T) {
	html := `<html><body><form>
		<label for="email">Email</label><input id="email" type="email">
		<label for="salary">Desired salary</label><input id="salary" type="text" required>
		<button type="submit">Submit</button>
	</form></body></html>`

	page := newFakePage(html)
	page.clickOK["button[type='submit']"] = true

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: true})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok, "fill succeeds, gating happens upstream")

	assert.NotEmpty(t, app.QuestionsNeedingReview())
	assert.Empty(t, page.clicked, "submit is withheld while questions need review")
}

func TestUniversal_NoSubmitInReviewMode(t *testing.T) {
	page := newFakePage(basicFormHTML)
	page.clickOK["button[type='submit']"] = true

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: false})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, page.clicked)
}

func TestUniversal_NoFormReturnsFalse(t *testing.T) {
	page := newFakePage(`<html><body><h1>Position filled</h1></body></html>`)

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: true})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, u.CanHandle(context.Background(), page))
}

func TestUniversal_ResumeUpload(t *testing.T) {
	html := `<html><body><form>
		<label for="email">Email</label><input id="email" type="email">
		<input id="resume" name="resume" type="file">
		<button type="submit">Submit</button>
	</form></body></html>`

	page := newFakePage(html)
	page.clickOK["button[type='submit']"] = true

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: true, ResumePath: "/tmp/resume.pdf"})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/tmp/resume.pdf", page.files["#resume"])
	assert.True(t, app.ResumeUploaded)
}

func TestUniversal_StubbornFieldFlagged(t *testing.T) {
	page := newFakePage(basicFormHTML)
	page.clickOK["button[type='submit']"] = true
	page.fillErrors["#email"] = true

	mapper := NewFieldMapper(testProfile(), nil)
	u := NewUniversal(mapper, Options{Submit: true})

	job := types.NewJob("Engineer", "Acme", "https://a.dev/1", types.SourceManual)
	app := types.NewApplication(job)

	ok, err := u.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok)

	flagged := app.QuestionsNeedingReview()
	require.Len(t, flagged, 1)
	assert.Equal(t, "Email", flagged[0].Text)
	assert.Empty(t, page.clicked, "review flag withholds submit")
}

func TestRedirect_ClicksApplyControl(t *testing.T) {
	page := newFakePage(`<html><body><a class="apply-button">Apply Now</a></body></html>`)
	page.clickOK[".apply-button"] = true

	r := NewRedirect()
	job := types.NewJob("Engineer", "Acme", "https://builtin.com/job/1", types.SourceBuiltin)
	app := types.NewApplication(job)

	ok, err := r.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{".apply-button"}, page.clicked)
}

func TestRedirect_NoControlFound(t *testing.T) {
	page := newFakePage(`<html><body><p>Nothing here</p></body></html>`)

	r := NewRedirect()
	job := types.NewJob("Engineer", "Acme", "https://builtin.com/job/1", types.SourceBuiltin)
	app := types.NewApplication(job)

	ok, err := r.Fill(context.Background(), page, job, app)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry(testProfile(), nil, Options{})

	assert.Equal(t, "greenhouse", reg.ForVendor(types.VendorGreenhouse).Name())
	assert.Equal(t, "lever", reg.ForVendor(types.VendorLever).Name())
	assert.Equal(t, "ashby", reg.ForVendor(types.VendorAshby).Name())
	assert.Equal(t, "redirect", reg.ForVendor(types.VendorRedirector).Name())

	// Vendors without a registered strategy fall through to universal.
	assert.Equal(t, "universal", reg.ForVendor(types.VendorWorkday).Name())
	assert.Equal(t, "universal", reg.ForVendor(types.VendorCustom).Name())
	assert.Equal(t, "universal", reg.ForVendor(types.VendorUnknown).Name())
	assert.Equal(t, "universal", reg.Universal().Name())
}

func TestVendorFiller_CanHandle(t *testing.T) {
	reg := NewRegistry(testProfile(), nil, Options{})
	gh := reg.ForVendor(types.VendorGreenhouse)

	ghPage := newFakePage(`<html><body><form id="application_form" action="https://boards.greenhouse.io/x"></form></body></html>`)
	assert.True(t, gh.CanHandle(context.Background(), ghPage))

	otherPage := newFakePage(`<html><body><form></form></body></html>`)
	assert.False(t, gh.CanHandle(context.Background(), otherPage))
}
