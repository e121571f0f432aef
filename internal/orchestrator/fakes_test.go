package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonathan/auto-applier/internal/browser"
)

// scriptedPage plays back per-URL page content and navigation results,
// and can simulate click-through navigation and popups.
type scriptedPage struct {
	mu      sync.Mutex
	current string

	htmlByURL   map[string]string
	statusByURL map[string]int
	navErrByURL map[string]error

	clickOK     map[string]bool
	clickTarget map[string]string // selector -> same-tab destination
	popup       *scriptedPage     // handed out once by ExpectPopup

	filled  map[string]string
	clicked []string
	closed  bool

	// afterStable runs once inside the first WaitStable call; tests use
	// it to trigger cancellation mid-run at a deterministic point.
	afterStable func()
}

func newScriptedPage() *scriptedPage {
	return &scriptedPage{
		htmlByURL:   make(map[string]string),
		statusByURL: make(map[string]int),
		navErrByURL: make(map[string]error),
		clickOK:     make(map[string]bool),
		clickTarget: make(map[string]string),
		filled:      make(map[string]string),
	}
}

func (p *scriptedPage) Navigate(_ context.Context, url string, _ time.Duration) (int, error) {
	if err, ok := p.navErrByURL[url]; ok {
		return 0, &browser.NavigationError{URL: url, Cause: err}
	}
	status := p.statusByURL[url]
	if status == 0 {
		status = 200
	}
	if status >= 400 {
		return status, &browser.NavigationError{URL: url, Status: status}
	}
	p.mu.Lock()
	p.current = url
	p.mu.Unlock()
	return status, nil
}

func (p *scriptedPage) Click(_ context.Context, selector string, _ time.Duration) error {
	if !p.clickOK[selector] {
		return errors.New("no such element")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicked = append(p.clicked, selector)
	if dest, ok := p.clickTarget[selector]; ok {
		p.current = dest
	}
	return nil
}

func (p *scriptedPage) Fill(_ context.Context, selector, value string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filled[selector] = value
	return nil
}

func (p *scriptedPage) SetFiles(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func (p *scriptedPage) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *scriptedPage) Content(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.htmlByURL[p.current], nil
}

func (p *scriptedPage) WaitStable(_ context.Context, _ time.Duration) error {
	if p.afterStable != nil {
		fn := p.afterStable
		p.afterStable = nil
		fn()
	}
	return nil
}

// ExpectPopup mirrors the real contract: the popup tab is only
// observed when the click runs while the listener is armed, so a
// caller that clicks before calling ExpectPopup misses it.
func (p *scriptedPage) ExpectPopup(_ context.Context, _ time.Duration, action func() error) (browser.Page, error) {
	p.mu.Lock()
	before := len(p.clicked)
	p.mu.Unlock()

	if err := action(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.popup != nil && len(p.clicked) > before {
		popup := p.popup
		p.popup = nil
		return popup, nil
	}
	return nil, browser.ErrNoPopup
}

func (p *scriptedPage) Screenshot(_ context.Context, name string) (string, error) {
	return "/tmp/" + name + ".png", nil
}

func (p *scriptedPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// pageFactory hands out scripted pages in order.
type pageFactory struct {
	mu    sync.Mutex
	pages []*scriptedPage
	err   error
}

func (f *pageFactory) NewPage(_ context.Context) (browser.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pages) == 0 {
		return nil, errors.New("no scripted page available")
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

// recordingNotifier captures every notification.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	reviews   []string
	summaries int
}

func (n *recordingNotifier) Completed(_ context.Context, title, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, title)
	return nil
}

func (n *recordingNotifier) Failed(_ context.Context, title, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
	return nil
}

func (n *recordingNotifier) NeedsReview(_ context.Context, title, _, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviews = append(n.reviews, title)
	return nil
}

func (n *recordingNotifier) Summary(_ context.Context, _, _, _, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries++
	return nil
}
