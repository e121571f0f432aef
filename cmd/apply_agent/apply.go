package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/auto-applier/internal/observability"
	"github.com/jonathan/auto-applier/internal/store"
	"github.com/jonathan/auto-applier/internal/types"
)

var applyCommand = &cobra.Command{
	Use:   "apply",
	Short: "Apply to a single job by id or URL",
	Long: `Runs the full application pipeline for one job. With --url the job is
registered first if it is not already known.`,
	RunE: applyCmd,
}

var (
	applyConfigPath string
	applyJobID      string
	applyURL        string
	applyTitle      string
	applyCompany    string
)

func init() {
	applyCommand.Flags().StringVar(&applyConfigPath, "config", "", "Path to config.json file")
	applyCommand.Flags().StringVar(&applyJobID, "id", "", "Job id to apply to (mutually exclusive with --url)")
	applyCommand.Flags().StringVar(&applyURL, "url", "", "Posting URL to apply to (mutually exclusive with --id)")
	applyCommand.Flags().StringVar(&applyTitle, "title", "", "Job title, recorded when registering a new URL")
	applyCommand.Flags().StringVar(&applyCompany, "company", "", "Company name, recorded when registering a new URL")

	rootCmd.AddCommand(applyCommand)
}

func applyCmd(_ *cobra.Command, _ []string) error {
	if (applyJobID == "") == (applyURL == "") {
		return fmt.Errorf("exactly one of --id or --url is required")
	}

	ctx := context.Background()
	cfg, err := loadConfig(applyConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	jobID := applyJobID
	if applyURL != "" {
		job, err := a.store.FindJobByURL(ctx, applyURL)
		if errors.Is(err, store.ErrNotFound) {
			job = types.NewJob(applyTitle, applyCompany, applyURL, types.SourceManual)
			if err := a.store.SaveJob(ctx, job); err != nil {
				return fmt.Errorf("failed to register job: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up job: %w", err)
		}
		jobID = job.ID
	}

	res, err := a.orch.ProcessJob(ctx, jobID)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintOutcome(res)
	return nil
}
