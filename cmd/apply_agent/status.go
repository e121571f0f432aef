package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/auto-applier/internal/observability"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show the job pipeline and recent activity",
	Long: `Prints per-status job counts and the most recently discovered jobs.
With --id it instead shows one job and the questions of its latest
application that are waiting on a human answer.`,
	RunE: statusCmd,
}

var (
	statusConfigPath string
	statusJobID      string
	statusRecent     int
)

func init() {
	statusCommand.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCommand.Flags().StringVar(&statusJobID, "id", "", "Show a single job and its review questions")
	statusCommand.Flags().IntVar(&statusRecent, "recent", 5, "Number of recent jobs to list")

	rootCmd.AddCommand(statusCommand)
}

func statusCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(statusConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Status only reads the store; no browser or LLM is wired up.
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	printer := observability.NewPrinter(os.Stdout)

	if statusJobID != "" {
		job, err := st.GetJob(ctx, statusJobID)
		if err != nil {
			return fmt.Errorf("failed to load job %s: %w", statusJobID, err)
		}
		printer.PrintJob(job)

		apps, err := st.ListApplicationsByJob(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("failed to load applications: %w", err)
		}
		if len(apps) > 0 {
			printer.PrintReviewQuestions(apps[len(apps)-1])
		}
		return nil
	}

	counts, err := st.CountJobsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}
	printer.PrintStats(counts)

	if statusRecent > 0 {
		jobs, err := st.ListJobs(ctx, statusRecent)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		for _, job := range jobs {
			printer.PrintJob(job)
		}
	}
	return nil
}
