package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/logger"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete reports past their retention horizon",
	Long: `Remove expired report records along with their uploaded documents
and generated artifacts.

Intended to run periodically, e.g. from cron.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().Bool("dry-run", false, "List expired reports without deleting anything")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cleanup")

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	expired, err := st.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list expired reports: %w", err)
	}
	if len(expired) == 0 {
		log.Info().Msg("No expired reports")
		return nil
	}

	removed := 0
	for _, report := range expired {
		if dryRun {
			fmt.Printf("%s\texpired %s\n", report.JobID, report.ExpiresAt.Format(time.RFC3339))
			continue
		}

		if report.FilePath != "" {
			if err := os.Remove(report.FilePath); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("job_id", report.JobID).Msg("Failed to remove upload")
			}
		}
		outputDir := filepath.Join(cfg.OutputsPath(), report.JobID)
		if err := os.RemoveAll(outputDir); err != nil {
			log.Warn().Err(err).Str("job_id", report.JobID).Msg("Failed to remove outputs")
		}
		if err := st.Delete(ctx, report.ID); err != nil {
			log.Warn().Err(err).Str("job_id", report.JobID).Msg("Failed to delete record")
			continue
		}
		removed++
	}

	log.Info().
		Int("expired", len(expired)).
		Int("removed", removed).
		Bool("dry_run", dryRun).
		Msg("Cleanup finished")
	return nil
}
