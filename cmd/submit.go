package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/ocr"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a lab report document for analysis",
	Long: `Copy a lab report document into managed storage and enqueue a
processing job for it.

The command prints the job ID; use "labreport status" to poll for the
result, or run "labreport process" / "labreport worker" to process it.

Supported file types: pdf, jpg, jpeg, png, webp.`,
	Example: `  # Submit a PDF report
  labreport submit bloodwork.pdf

  # Submit with patient demographics and Urdu output
  labreport submit cbc.jpg --age 34 --gender female --language ur

  # Submit on behalf of a WhatsApp sender
  labreport submit report.pdf --whatsapp +923001234567`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().Int("age", 0, "Patient age (0 leaves it unset)")
	submitCmd.Flags().String("gender", "", "Patient gender")
	submitCmd.Flags().String("language", "en", "Output language code (en, ur)")
	submitCmd.Flags().String("whatsapp", "", "WhatsApp number to notify on completion")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("submit")

	age, _ := cmd.Flags().GetInt("age")
	gender, _ := cmd.Flags().GetString("gender")
	language, _ := cmd.Flags().GetString("language")
	whatsapp, _ := cmd.Flags().GetString("whatsapp")

	srcPath := args[0]
	fileType := ocr.NormalizeFileType(srcPath)
	if !ocr.SupportedType(fileType) {
		return fmt.Errorf("unsupported file type %q", fileType)
	}

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

	report := models.NewReport("", fileType)
	report.Language = language
	report.Gender = gender
	if age > 0 {
		report.Age = &age
	}
	if whatsapp != "" {
		report.Source = models.SourceWhatsApp
		report.WhatsAppNumber = whatsapp
	}
	if cfg.RetentionHours > 0 {
		report.ExpiresAt = report.CreatedAt.Add(time.Duration(cfg.RetentionHours) * time.Hour)
	}

	destPath := filepath.Join(cfg.UploadsPath(), report.JobID+"."+fileType)
	if err := copyFile(srcPath, destPath); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	report.FilePath = destPath

	if err := st.Create(ctx, report); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to enqueue report: %w", err)
	}

	log.Info().
		Str("job_id", report.JobID).
		Str("file", destPath).
		Str("language", language).
		Msg("Report submitted")

	fmt.Printf("Job submitted: %s\n", report.JobID)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
