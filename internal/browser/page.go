package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ErrNoPopup is returned by ExpectPopup when no new tab opened within
// the wait window. Callers fall back to same-tab navigation.
var ErrNoPopup = errors.New("no new tab opened")

// NavigationError reports a failed or rejected page load. Status is the
// HTTP status when the server answered, zero for network-level
// failures (DNS, connection refused, timeout).
type NavigationError struct {
	URL    string
	Status int
	Cause  error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigation to %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Cause)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// Unrecoverable reports whether the failure means the posting is gone
// or unreachable (client/server error status, dead host, timeout)
// rather than a transient hiccup worth a strategy-level retry.
func (e *NavigationError) Unrecoverable() bool {
	if e.Status == 404 || e.Status >= 500 {
		return true
	}
	if e.Cause == nil {
		return false
	}
	msg := strings.ToLower(e.Cause.Error())
	return strings.Contains(msg, "err_name_not_resolved") ||
		strings.Contains(msg, "err_connection_refused") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "timeout")
}

// Page is one browser tab owned exclusively by a single run. Every
// blocking call takes a context and carries its own timeout; a timeout
// fails that step, never the whole process.
type Page interface {
	// Navigate loads a URL and returns the HTTP status of the main
	// document. Network failures and error statuses come back as a
	// *NavigationError.
	Navigate(ctx context.Context, url string, timeout time.Duration) (int, error)
	// Click clicks the first visible node matching the selector.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// Fill replaces the value of the first node matching the selector.
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	// SetFiles attaches a local file to a file input.
	SetFiles(ctx context.Context, selector, path string, timeout time.Duration) error
	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)
	// Content returns the rendered document HTML.
	Content(ctx context.Context) (string, error)
	// WaitStable blocks for the settle window, bounded by ctx.
	WaitStable(ctx context.Context, settle time.Duration) error
	// ExpectPopup arms a new-tab listener, runs action (typically a
	// click), then waits up to timeout for the tab the action opened,
	// returning it as a new Page or ErrNoPopup when the window elapses.
	// The listener must be armed before action runs: a tab opened
	// synchronously by the click would otherwise be missed.
	ExpectPopup(ctx context.Context, timeout time.Duration, action func() error) (Page, error)
	// Screenshot captures the viewport to the screenshots dir and
	// returns the file path.
	Screenshot(ctx context.Context, name string) (string, error)
	// Close releases the tab and its browser context.
	Close() error
}

// chromePage implements Page on a dedicated chromedp context.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) (int, error) {
	runCtx, cancel := p.bounded(ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return 0, &NavigationError{URL: url, Cause: err}
	}

	status := 0
	if resp != nil {
		status = int(resp.Status)
	}
	if status == 404 || status >= 500 {
		return status, &NavigationError{URL: url, Status: status}
	}
	return status, nil
}

func (p *chromePage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := p.bounded(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	runCtx, cancel := p.bounded(ctx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, value),
	)
	if err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) SetFiles(ctx context.Context, selector, path string, timeout time.Duration) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve upload path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("upload file not found: %w", err)
	}

	runCtx, cancel := p.bounded(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.SetUploadFiles(selector, []string{abs})); err != nil {
		return fmt.Errorf("upload via %q failed: %w", selector, err)
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	runCtx, cancel := p.bounded(ctx, 5*time.Second)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	runCtx, cancel := p.bounded(ctx, 10*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) WaitStable(ctx context.Context, settle time.Duration) error {
	runCtx, cancel := p.bounded(ctx, settle+10*time.Second)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
	)
}

func (p *chromePage) ExpectPopup(ctx context.Context, timeout time.Duration, action func() error) (Page, error) {
	ch := chromedp.WaitNewTarget(p.ctx, func(info *target.Info) bool {
		return info.Type == "page" && info.URL != ""
	})

	if err := action(); err != nil {
		return nil, err
	}

	select {
	case targetID := <-ch:
		popupCtx, cancel := chromedp.NewContext(p.ctx, chromedp.WithTargetID(targetID))
		if err := chromedp.Run(popupCtx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to attach to popup: %w", err)
		}
		return &chromePage{ctx: popupCtx, cancel: cancel, opts: p.opts}, nil
	case <-time.After(timeout):
		return nil, ErrNoPopup
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *chromePage) Screenshot(ctx context.Context, name string) (string, error) {
	dir := p.opts.ScreenshotsDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshots dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", name, time.Now().Unix()))

	runCtx, cancel := p.bounded(ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// bounded derives a chromedp run context that honors both the caller's
// context and the per-step timeout.
func (p *chromePage) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
