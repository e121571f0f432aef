package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/auto-applier/internal/observability"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one application session end-to-end",
	Long: `Discovers new postings (unless --no-scrape), selects actionable jobs
oldest-first, and applies to each until the per-session cap is reached.
With review_mode enabled (the default) forms are filled but never
submitted; each filled application parks in needs_review.`,
	RunE: runSessionCmd,
}

var (
	runConfigPath string
	runMax        int
	runNoScrape   bool
	runReview     bool
	runVerbose    bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file")
	runCommand.Flags().IntVar(&runMax, "max", 0, "Override the per-session submission cap")
	runCommand.Flags().BoolVar(&runNoScrape, "no-scrape", false, "Skip the discovery pass, use stored jobs only")
	runCommand.Flags().BoolVar(&runReview, "review", true, "Fill forms but withhold submission for human review")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("max") {
		cfg.MaxPerRun = runMax
	}
	if cmd.Flags().Changed("review") {
		cfg.ReviewMode = runReview
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	scrapeFirst := !runNoScrape && a.agg != nil
	res, err := a.orch.RunSession(ctx, a.agg, a.sessionOptions(scrapeFirst))
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintSessionSummary(res)
	return nil
}
