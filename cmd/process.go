package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [job-id]",
	Short: "Process a single submitted job through the full pipeline",
	Long: `Run one job through extraction, scrubbing, classification, analysis,
translation and rendering, then exit.

This is the one-shot counterpart to "labreport worker" and is mainly
useful for debugging a specific job.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	jobID := args[0]
	log := logger.WithJobID(jobID)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

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

	start := time.Now()
	outcome, err := p.Process(ctx, jobID)
	if err != nil {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info().
		Str("outcome", string(outcome)).
		Dur("duration", time.Since(start)).
		Msg("Processing finished")

	switch outcome {
	case pipeline.OutcomeNotFound:
		return fmt.Errorf("no job with ID %q", jobID)
	case pipeline.OutcomeFailed:
		fmt.Printf("Job %s failed; see \"labreport status %s\" for the reason.\n", jobID, jobID)
	default:
		fmt.Printf("Job %s completed.\n", jobID)
	}
	return nil
}
