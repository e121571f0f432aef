package fillers

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/browser"
)

// fakePage scripts browser behavior for strategy tests.
type fakePage struct {
	html       string
	url        string
	filled     map[string]string
	clicked    []string
	clickOK    map[string]bool // selectors that accept clicks
	fillErrors map[string]bool // selectors that reject fills
	files      map[string]string
}

func newFakePage(html string) *fakePage {
	return &fakePage{
		html:       html,
		url:        "https://careers.acme.dev/apply",
		filled:     make(map[string]string),
		clickOK:    make(map[string]bool),
		fillErrors: make(map[string]bool),
		files:      make(map[string]string),
	}
}

func (p *fakePage) Navigate(_ context.Context, _ string, _ time.Duration) (int, error) {
	return 200, nil
}

func (p *fakePage) Click(_ context.Context, selector string, _ time.Duration) error {
	if p.clickOK[selector] {
		p.clicked = append(p.clicked, selector)
		return nil
	}
	return errors.New("no such element")
}

func (p *fakePage) Fill(_ context.Context, selector, value string, _ time.Duration) error {
	if p.fillErrors[selector] {
		return errors.New("element not interactable")
	}
	p.filled[selector] = value
	return nil
}

func (p *fakePage) SetFiles(_ context.Context, selector, path string, _ time.Duration) error {
	p.files[selector] = path
	return nil
}

func (p *fakePage) URL(_ context.Context) (string, error)     { return p.url, nil }
func (p *fakePage) Content(_ context.Context) (string, error) { return p.html, nil }

func (p *fakePage) WaitStable(_ context.Context, _ time.Duration) error { return nil }

func (p *fakePage) ExpectPopup(_ context.Context, _ time.Duration, action func() error) (browser.Page, error) {
	if err := action(); err != nil {
		return nil, err
	}
	return nil, browser.ErrNoPopup
}

func (p *fakePage) Screenshot(_ context.Context, name string) (string, error) {
	return "/tmp/" + name + ".png", nil
}

func (p *fakePage) Close() error { return nil }

// fakeLLM returns a scripted response or error.
type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(_ context.Context, _ string, _ int, _ float32) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

func testProfile() *applicant.Applicant {
	return &applicant.Applicant{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+1 555 000 1234",
		Address:   applicant.Address{City: "Brooklyn", State: "NY", Country: "United States"},
		LinkedIn:  "https://linkedin.com/in/ada",
		WorkAuth:  applicant.WorkAuthorization{AuthorizedUS: true},
		Summary:   "Backend engineer with ten years of Go experience.",
		CustomAnswers: map[string]string{
			"how did you hear": "A friend referred me.",
		},
	}
}
