package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/config"
)

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "Write starter config and profile files",
	Long:  `Creates config.json and data/profile.json templates to fill in. Existing files are never overwritten.`,
	RunE:  initCmd,
}

var initDir string

func init() {
	initCommand.Flags().StringVar(&initDir, "dir", ".", "Directory to create the files in")
	rootCmd.AddCommand(initCommand)
}

func initCmd(_ *cobra.Command, _ []string) error {
	cfg := config.Default()
	cfg.GreenhouseBoards = []string{"examplecompany"}
	cfg.LeverCompanies = []string{"examplecompany"}

	profile := applicant.Applicant{
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@example.com",
		Phone:      "+1 555 000 0000",
		Address:    applicant.Address{City: "New York", State: "NY", Country: "United States"},
		LinkedIn:   "https://linkedin.com/in/janedoe",
		ResumePath: "data/resume.pdf",
		WorkAuth:   applicant.WorkAuthorization{AuthorizedUS: true},
		Summary:    "Short background blurb used as LLM context for free-text questions.",
		CustomAnswers: map[string]string{
			"how did you hear": "Job board",
		},
	}

	if err := writeJSONIfAbsent(filepath.Join(initDir, "config.json"), cfg); err != nil {
		return err
	}
	if err := writeJSONIfAbsent(filepath.Join(initDir, cfg.ProfilePath), profile); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Wrote config.json and", cfg.ProfilePath)
	fmt.Fprintln(os.Stdout, "Edit the profile before running: answers are filled into real application forms.")
	return nil
}

func writeJSONIfAbsent(path string, v any) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
