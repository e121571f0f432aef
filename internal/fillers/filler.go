// Package fillers contains the form-filling strategies, one per ATS
// vendor plus a universal fallback, behind a single capability
// interface. Adding a vendor means registering a new strategy here; the
// orchestrator never branches on vendor identity.
package fillers

import (
	"context"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/llm"
	"github.com/jonathan/auto-applier/internal/types"
)

// Filler is the capability contract for one filling strategy.
type Filler interface {
	// Name identifies the strategy in logs and application records.
	Name() string
	// CanHandle reports whether the strategy recognizes the page. A
	// false return makes the registry fall through to the universal
	// strategy rather than failing the run.
	CanHandle(ctx context.Context, page browser.Page) bool
	// Fill populates (and, unless review mode disabled submission,
	// submits) the application form. The boolean reports success;
	// questions needing review are recorded on the application.
	Fill(ctx context.Context, page browser.Page, job *types.Job, app *types.Application) (bool, error)
}

// Options configures strategy construction.
type Options struct {
	// Submit controls whether strategies click the final submit
	// control. Review mode leaves the filled form open for a human.
	Submit bool
	// ResumePath is the local file attached to resume upload inputs.
	ResumePath string
}

// Registry is the static vendor-to-strategy mapping with one universal
// fallback arm.
type Registry struct {
	byVendor  map[types.Vendor]Filler
	universal Filler
	redirect  Filler
}

// NewRegistry wires the full strategy set for the given applicant
// profile. The LLM client may be nil; strategies then flag free-text
// questions for review instead of generating answers.
func NewRegistry(profile *applicant.Applicant, client llm.Client, opts Options) *Registry {
	mapper := NewFieldMapper(profile, client)
	universal := NewUniversal(mapper, opts)
	redirect := NewRedirect()

	return &Registry{
		byVendor: map[types.Vendor]Filler{
			types.VendorGreenhouse: NewGreenhouse(mapper, opts),
			types.VendorLever:      NewLever(mapper, opts),
			types.VendorAshby:      NewAshby(mapper, opts),
			types.VendorRedirector: redirect,
		},
		universal: universal,
		redirect:  redirect,
	}
}

// ForVendor returns the strategy registered for the vendor, or the
// universal fallback when none is registered.
func (r *Registry) ForVendor(v types.Vendor) Filler {
	if f, ok := r.byVendor[v]; ok {
		return f
	}
	return r.universal
}

// Universal returns the fallback strategy directly. Used when the
// redirect resolver exhausts its hop budget.
func (r *Registry) Universal() Filler {
	return r.universal
}

// Redirect returns the landing-page click-through strategy.
func (r *Registry) Redirect() Filler {
	return r.redirect
}
