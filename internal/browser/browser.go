// Package browser provides headless browser automation for application
// runs. Each run gets its own isolated browser context so cookies, tabs
// and navigation state never cross-contaminate between concurrent jobs.
package browser

import (
	"context"
	"fmt"
	"log"

	"github.com/chromedp/chromedp"
)

// defaultUserAgent is a realistic desktop user agent; automation-tagged
// agents get instantly blocked by several ATS vendors.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the browser manager.
type Options struct {
	Headless       bool
	UserAgent      string
	ScreenshotsDir string
	Verbose        bool
}

// Manager owns the shared Chrome process allocator. Pages created from
// it are isolated per run. Requires Chrome/Chromium on the system.
type Manager struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	opts        Options
}

// NewManager starts the exec allocator with stealth-ish flags.
func NewManager(ctx context.Context, opts Options) *Manager {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(opts.UserAgent),
		)...,
	)

	return &Manager{allocCtx: allocCtx, allocCancel: cancel, opts: opts}
}

// NewPage creates an isolated browser context for one run.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	browserCtx, cancel := chromedp.NewContext(m.allocCtx)

	// Spin up the browser target eagerly so failures surface here
	// rather than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser context: %w", err)
	}

	if m.opts.Verbose {
		log.Printf("[BROWSER] New page context created")
	}
	return &chromePage{ctx: browserCtx, cancel: cancel, opts: m.opts}, nil
}

// Close shuts down the allocator and every remaining page.
func (m *Manager) Close() {
	m.allocCancel()
}

