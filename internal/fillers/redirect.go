package fillers

import (
	"context"
	"time"

	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/types"
)

// applySelectors target the apply-like control on aggregator landing
// pages, most specific first.
var applySelectors = []string{
	"a[data-testid='apply-button']",
	"#apply-button",
	".apply-button",
	"a[href*='apply']",
	"a[href*='application']",
	"button[class*='apply']",
	"a[class*='apply']",
	"button[id*='apply']",
}

// Redirect is the landing-page strategy: it does not fill anything, it
// clicks the apply-like control so the resolver can follow the page to
// the real form, in place or in a new tab.
type Redirect struct{}

// NewRedirect creates the landing-page click-through strategy.
func NewRedirect() *Redirect {
	return &Redirect{}
}

// Name implements Filler.
func (r *Redirect) Name() string { return "redirect" }

// CanHandle implements Filler. The resolver dispatches here explicitly
// after classifying the page as a redirector, so any page qualifies.
func (r *Redirect) CanHandle(_ context.Context, _ browser.Page) bool {
	return true
}

// Fill clicks the first workable apply control. Success means a click
// landed; the resolver owns waiting for the navigation that follows.
func (r *Redirect) Fill(ctx context.Context, page browser.Page, _ *types.Job, app *types.Application) (bool, error) {
	for _, sel := range applySelectors {
		if err := page.Click(ctx, sel, 5*time.Second); err == nil {
			app.AddLog("clicked_apply", sel)
			return true, nil
		}
	}
	return false, nil
}
