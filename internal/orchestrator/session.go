package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jonathan/auto-applier/internal/scrape"
)

// SessionOptions tunes one batch run.
type SessionOptions struct {
	// MaxApplications caps submitted applications per session. Zero
	// means unlimited. Failed, expired and needs_review outcomes do
	// not count against the cap.
	MaxApplications int
	// Overfetch multiplies the candidate fetch size so the session
	// still reaches its cap when some candidates expire or fail.
	Overfetch int
	// DelayMin and DelayMax bound the randomized pause between jobs.
	DelayMin time.Duration
	DelayMax time.Duration
	// ScrapeFirst runs a discovery pass before selecting candidates.
	ScrapeFirst bool
	// ScrapeLimit caps jobs per discovery source.
	ScrapeLimit int
}

// SessionResult summarizes one batch run.
type SessionResult struct {
	Discovered  int `json:"discovered,omitempty"`
	Processed   int `json:"processed"`
	Submitted   int `json:"submitted"`
	NeedsReview int `json:"needs_review"`
	Failed      int `json:"failed"`
	Expired     int `json:"expired"`
	Cancelled   int `json:"cancelled"`
}

// RunSession processes actionable jobs in discovery order until the
// submission cap is reached or candidates run out. Jobs are spaced by
// a randomized delay; a burst of instant submissions is the easiest
// automation signature to flag.
func (o *Orchestrator) RunSession(ctx context.Context, agg *scrape.Aggregator, opts SessionOptions) (SessionResult, error) {
	var res SessionResult

	if opts.ScrapeFirst && agg != nil {
		dr, err := agg.Discover(ctx, opts.ScrapeLimit)
		if err != nil {
			return res, fmt.Errorf("discovery failed: %w", err)
		}
		res.Discovered = dr.New
		log.Printf("[SESSION] discovery: %d found, %d new", dr.Found, dr.New)
	}

	fetch := opts.MaxApplications
	if fetch > 0 && opts.Overfetch > 1 {
		fetch *= opts.Overfetch
	}
	candidates, err := o.store.ListActionable(ctx, fetch)
	if err != nil {
		return res, fmt.Errorf("failed to list candidates: %w", err)
	}
	log.Printf("[SESSION] %d candidates", len(candidates))

	for i, job := range candidates {
		if opts.MaxApplications > 0 && res.Submitted >= opts.MaxApplications {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i > 0 {
			if err := o.pause(ctx, opts.DelayMin, opts.DelayMax); err != nil {
				return res, err
			}
		}

		jr, err := o.ProcessJob(ctx, job.ID)
		if err != nil {
			return res, fmt.Errorf("job %s: %w", job.ID, err)
		}
		res.Processed++
		switch jr.Outcome {
		case OutcomeSubmitted:
			res.Submitted++
		case OutcomeNeedsReview:
			res.NeedsReview++
		case OutcomeFailed:
			res.Failed++
		case OutcomeExpired:
			res.Expired++
		case OutcomeCancelled:
			res.Cancelled++
		}
	}

	if err := o.notifier.Summary(ctx, res.Submitted, res.Processed-res.Submitted, res.Failed, res.NeedsReview); err != nil {
		log.Printf("[SESSION] summary notification failed: %v", err)
	}
	log.Printf("[SESSION] done: %d processed, %d submitted, %d review, %d failed, %d expired",
		res.Processed, res.Submitted, res.NeedsReview, res.Failed, res.Expired)
	return res, nil
}

// pause sleeps a random duration in [min, max], bounded by ctx.
func (o *Orchestrator) pause(ctx context.Context, min, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	log.Printf("[SESSION] pausing %s before next job", d.Round(time.Second))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
