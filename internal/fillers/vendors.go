package fillers

import (
	"context"
	"strings"

	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/types"
)

// vendorFiller is a selector-table-driven strategy. The vendors we
// support share the same shape: a recognizable application form plus
// markers in the page HTML; only the selectors differ.
type vendorFiller struct {
	name         string
	formSelector string
	markers      []string
	mapper       *FieldMapper
	opts         Options
}

// Name implements Filler.
func (v *vendorFiller) Name() string { return v.name }

// CanHandle checks the rendered HTML for the vendor's markers.
func (v *vendorFiller) CanHandle(ctx context.Context, page browser.Page) bool {
	html, err := page.Content(ctx)
	if err != nil {
		return false
	}
	lower := strings.ToLower(html)
	for _, marker := range v.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Fill walks the vendor's application form; when the vendor-specific
// form selector matches nothing (vendors redesign their boards), fall
// back to the generic form walker on the same page.
func (v *vendorFiller) Fill(ctx context.Context, page browser.Page, job *types.Job, app *types.Application) (bool, error) {
	ok, err := fillDiscoveredForm(ctx, page, job, app, v.mapper, v.opts, v.formSelector)
	if err != nil || ok {
		return ok, err
	}
	return fillDiscoveredForm(ctx, page, job, app, v.mapper, v.opts, "form")
}

// NewGreenhouse creates the Greenhouse strategy.
func NewGreenhouse(mapper *FieldMapper, opts Options) Filler {
	return &vendorFiller{
		name:         "greenhouse",
		formSelector: "#application-form, #application_form, form#application",
		markers:      []string{"greenhouse.io", "gh-apply", "application-form"},
		mapper:       mapper,
		opts:         opts,
	}
}

// NewLever creates the Lever strategy.
func NewLever(mapper *FieldMapper, opts Options) Filler {
	return &vendorFiller{
		name:         "lever",
		formSelector: "form.application-form, form[action*='lever']",
		markers:      []string{"lever.co", "postings-btn", "lever-application"},
		mapper:       mapper,
		opts:         opts,
	}
}

// NewAshby creates the Ashby strategy.
func NewAshby(mapper *FieldMapper, opts Options) Filler {
	return &vendorFiller{
		name:         "ashby",
		formSelector: "form[class*='ashby'], form#application-form",
		markers:      []string{"ashbyhq", "ashby-apply"},
		mapper:       mapper,
		opts:         opts,
	}
}
