package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/store"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultRetryDelay   = 5 * time.Second
)

// Runner polls the store for pending jobs and feeds them through the
// pipeline one at a time.
type Runner struct {
	pipeline   *Pipeline
	store      store.Store
	interval   time.Duration
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewRunner builds a polling worker. A non-positive interval falls back
// to the default.
func NewRunner(p *Pipeline, st store.Store, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Runner{
		pipeline:   p,
		store:      st,
		interval:   interval,
		retryDelay: defaultRetryDelay,
		log:        logger.WithComponent("runner"),
	}
}

// Run polls until the context is canceled. After draining the queue it
// sleeps for one interval before polling again.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("Worker started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.drain(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain processes claimed jobs until the queue is empty.
func (r *Runner) drain(ctx context.Context) error {
	for {
		report, err := r.store.NextPending(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			r.log.Error().Err(err).Msg("Failed to poll for pending reports")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.runOne(ctx, report.JobID)
	}
}

// runOne processes a single job, retrying once after a fixed delay if the
// pipeline hit an infrastructure error. Stage failures are already recorded
// on the job and are not retried.
func (r *Runner) runOne(ctx context.Context, jobID string) {
	log := r.log.With().Str("job_id", jobID).Logger()

	outcome, err := r.pipeline.Process(ctx, jobID)
	if err == nil {
		log.Info().Str("outcome", string(outcome)).Msg("Job finished")
		return
	}

	log.Warn().Err(err).Dur("delay", r.retryDelay).Msg("Pipeline error, retrying once")
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.retryDelay):
	}

	outcome, err = r.pipeline.Process(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Msg("Job failed after retry")
		return
	}
	log.Info().Str("outcome", string(outcome)).Msg("Job finished after retry")
}
