package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/store"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the status and result of a submitted job",
	Example: `  # Check progress
  labreport status 6f1c2a8e-...

  # Print the rendered markdown once completed
  labreport status 6f1c2a8e-... --markdown

  # Print the raw analysis JSON
  labreport status 6f1c2a8e-... --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("markdown", false, "Print the result markdown")
	statusCmd.Flags().Bool("json", false, "Print the result JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	showMarkdown, _ := cmd.Flags().GetBool("markdown")
	showJSON, _ := cmd.Flags().GetBool("json")
	jobID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := st.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no job with ID %q", jobID)
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	switch {
	case showJSON && report.ResultJSON != "":
		var pretty json.RawMessage = []byte(report.ResultJSON)
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		fmt.Println(string(out))
	case showMarkdown && report.ResultMarkdown != "":
		fmt.Println(report.ResultMarkdown)
	default:
		fmt.Printf("Job:     %s\n", report.JobID)
		fmt.Printf("Status:  %s\n", report.Status)
		fmt.Printf("Created: %s\n", report.CreatedAt.Format(time.RFC3339))
		if report.Status == models.StatusFailed {
			fmt.Printf("Error:   %s\n", report.ErrorMessage)
		}
		if report.ResultPDFPath != "" {
			fmt.Printf("PDF:     %s\n", report.ResultPDFPath)
		}
	}
	return nil
}
