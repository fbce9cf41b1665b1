package cmd

import (
	"context"
	"fmt"

	"github.com/usamaalam01/LabReportAI/internal/analyzer"
	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/notify"
	"github.com/usamaalam01/LabReportAI/internal/ocr"
	"github.com/usamaalam01/LabReportAI/internal/pipeline"
	"github.com/usamaalam01/LabReportAI/internal/render"
	"github.com/usamaalam01/LabReportAI/internal/store"
	"github.com/usamaalam01/LabReportAI/internal/translator"
	"github.com/usamaalam01/LabReportAI/internal/validator"
)

// openStore connects the Postgres-backed store and applies the reports
// schema. The returned closer shuts down the connection pool.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

// buildPipeline wires the full processing pipeline from configuration. The
// returned closer releases the OCR client.
func buildPipeline(ctx context.Context, cfg *config.Config, st store.Store) (*pipeline.Pipeline, func(), error) {
	extractor, err := ocr.NewExtractor(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OCR extractor: %w", err)
	}

	provider := llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL)

	p := pipeline.New(
		st,
		extractor,
		validator.New(provider, cfg.LLMValidationModel, cfg.ValidationThreshold, cfg.ValidationRetries),
		analyzer.New(provider, cfg.LLMAnalysisModel, cfg.AnalysisRetries),
		translator.New(provider, cfg.LLMTranslationModel, cfg.TranslationRetries),
		render.NewPDFGenerator(cfg.PDFConverter),
		notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber),
		pipeline.Options{
			OutputsPath:   cfg.OutputsPath(),
			FailClosed:    cfg.ValidationFailClosed,
			PublicBaseURL: cfg.PublicBaseURL,
		},
	)

	closer := func() {
		if err := extractor.Close(); err != nil {
			log := logger.WithComponent("deps")
			log.Warn().Err(err).Msg("Failed to close OCR client")
		}
	}
	return p, closer, nil
}
