// Package scrape discovers job postings from public ATS listing APIs
// and feeds them into the store as actionable jobs.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

// Source is one job discovery backend.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Scrape returns up to limit freshly discovered jobs. Jobs need not
	// be deduplicated; the aggregator handles that against the store.
	Scrape(ctx context.Context, limit int) ([]*types.Job, error)
}

// Result summarizes one discovery pass.
type Result struct {
	Found int `json:"found"`
	New   int `json:"new"`
}

// Aggregator fans out over all configured sources concurrently and
// inserts unseen jobs into the store.
type Aggregator struct {
	sources []Source
	store   store.Store
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(st store.Store, sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, store: st}
}

// Discover runs every source and persists new jobs, deduplicated by
// canonical URL. A failing source is logged and skipped; discovery
// fails only when every source fails.
func (a *Aggregator) Discover(ctx context.Context, limitPerSource int) (Result, error) {
	var (
		mu     sync.Mutex
		all    []*types.Job
		errCnt int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		g.Go(func() error {
			jobs, err := src.Scrape(gctx, limitPerSource)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[SCRAPE] %s failed: %v", src.Name(), err)
				errCnt++
				return nil
			}
			log.Printf("[SCRAPE] %s found %d jobs", src.Name(), len(jobs))
			all = append(all, jobs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if len(a.sources) > 0 && errCnt == len(a.sources) {
		return Result{}, fmt.Errorf("all %d discovery sources failed", errCnt)
	}

	res := Result{Found: len(all)}
	for _, job := range all {
		_, err := a.store.FindJobByURL(ctx, job.URL)
		switch {
		case err == nil:
			continue // already known
		case errors.Is(err, store.ErrNotFound):
			if err := a.store.SaveJob(ctx, job); err != nil {
				return res, fmt.Errorf("failed to save discovered job: %w", err)
			}
			res.New++
		default:
			return res, fmt.Errorf("failed to check for existing job: %w", err)
		}
	}
	return res, nil
}
