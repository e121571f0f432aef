package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Run one discovery pass without applying",
	RunE:  scrapeCmd,
}

var (
	scrapeConfigPath string
	scrapeLimit      int
)

func init() {
	scrapeCommand.Flags().StringVar(&scrapeConfigPath, "config", "", "Path to config.json file")
	scrapeCommand.Flags().IntVar(&scrapeLimit, "limit", 50, "Maximum jobs per discovery source")

	rootCmd.AddCommand(scrapeCommand)
}

func scrapeCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(scrapeConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if a.agg == nil {
		return fmt.Errorf("no discovery sources configured (set greenhouse_boards or lever_companies)")
	}

	res, err := a.agg.Discover(ctx, scrapeLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Discovery complete: %d found, %d new\n", res.Found, res.New)
	return nil
}
