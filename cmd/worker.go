package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/pipeline"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the polling worker that processes pending jobs",
	Long: `Poll the job queue and run every claimed job through the pipeline.

The worker claims jobs atomically, so multiple workers can run against
the same database. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Int("interval", 2, "Poll interval in seconds")
}

func runWorker(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("worker")

	intervalSecs, _ := cmd.Flags().GetInt("interval")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p, closePipeline, err := buildPipeline(ctx, cfg, st)
	if err != nil {
		return err
	}
	defer closePipeline()

	runner := pipeline.NewRunner(p, st, time.Duration(intervalSecs)*time.Second)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.Info().Msg("Worker shut down")
	return nil
}
