package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "labreport",
	Short: "LabReportAI - AI-assisted lab report analysis",
	Long: `LabReportAI turns uploaded lab report documents (PDF or photos) into
a structured, plain-language interpretation.

Reports are submitted as jobs and processed asynchronously: text is
extracted with OCR, personally identifying information is scrubbed,
the document is classified, analyzed with an LLM, optionally
translated, and rendered to markdown and PDF.`,
	Version: version,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
