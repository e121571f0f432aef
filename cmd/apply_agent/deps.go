package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/config"
	"github.com/jonathan/auto-applier/internal/fillers"
	"github.com/jonathan/auto-applier/internal/llm"
	"github.com/jonathan/auto-applier/internal/notify"
	"github.com/jonathan/auto-applier/internal/orchestrator"
	"github.com/jonathan/auto-applier/internal/runs"
	"github.com/jonathan/auto-applier/internal/scrape"
	"github.com/jonathan/auto-applier/internal/server"
	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/store/postgres"
)

// app holds the fully wired application graph shared by the CLI commands.
type app struct {
	cfg     *config.Config
	store   store.Store
	orch    *orchestrator.Orchestrator
	agg     *scrape.Aggregator
	closers []func()
}

// loadConfig reads the config file when given, environment otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	return &cfg, nil
}

// openStore connects to Postgres when a database URL is configured and
// falls back to the in-memory store otherwise. The returned closer is
// nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, db.Close, nil
	}
	log.Println("No DATABASE_URL configured; using in-memory store (state is lost on exit)")
	return store.NewMemory(), nil, nil
}

// buildApp wires the store, browser, strategies, notifier and
// orchestrator from configuration. Call close when done.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = st
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	profile, err := applicant.Load(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant profile: %w", err)
	}

	var llmClient llm.Client
	if cfg.APIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.APIKey, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		llmClient = client
		a.closers = append(a.closers, func() { _ = client.Close() })
	} else {
		log.Println("No GEMINI_API_KEY configured; free-text questions will be flagged for review")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NtfyTopic != "" {
		ntfy, err := notify.NewNtfy(cfg.NtfyTopic)
		if err != nil {
			return nil, err
		}
		notifier = ntfy
		log.Printf("Notifications: %s", ntfy.SubscribeURL())
	}

	manager := browser.NewManager(ctx, browser.Options{
		Headless:       cfg.Headless,
		ScreenshotsDir: cfg.ScreenshotsDir,
		Verbose:        cfg.Verbose,
	})
	a.closers = append(a.closers, manager.Close)

	registry := fillers.NewRegistry(profile, llmClient, fillers.Options{
		Submit:     !cfg.ReviewMode,
		ResumePath: profile.ResumePath,
	})

	a.orch = orchestrator.New(a.store, runs.NewRegistry(), registry, manager, notifier,
		orchestrator.Options{
			ReviewMode:      cfg.ReviewMode,
			SaveScreenshots: cfg.SaveScreenshots,
		})

	var sources []scrape.Source
	if len(cfg.GreenhouseBoards) > 0 {
		sources = append(sources, scrape.NewGreenhouseSource(cfg.GreenhouseBoards))
	}
	if len(cfg.LeverCompanies) > 0 {
		sources = append(sources, scrape.NewLeverSource(cfg.LeverCompanies))
	}
	if len(sources) > 0 {
		a.agg = scrape.NewAggregator(a.store, sources...)
	}

	return a, nil
}

// sessionOptions translates config into batch run options.
func (a *app) sessionOptions(scrapeFirst bool) orchestrator.SessionOptions {
	return orchestrator.SessionOptions{
		MaxApplications: a.cfg.MaxPerRun,
		Overfetch:       a.cfg.OverfetchFactor,
		DelayMin:        time.Duration(a.cfg.DelayMinSeconds) * time.Second,
		DelayMax:        time.Duration(a.cfg.DelayMaxSeconds) * time.Second,
		ScrapeFirst:     scrapeFirst,
		ScrapeLimit:     a.cfg.MaxPerRun * a.cfg.OverfetchFactor,
	}
}

func (a *app) serverConfig(port int) server.Config {
	return server.Config{
		Port:    port,
		Session: a.sessionOptions(a.agg != nil),
	}
}

// close releases resources in reverse construction order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
