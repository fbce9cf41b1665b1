// Package store persists report job records. The pipeline treats the
// store as the single source of truth for job progress: every status
// transition is written through before the next stage runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// ErrNotFound is returned when no report exists for the given identifier.
var ErrNotFound = errors.New("report not found")

// ErrDuplicate is returned when a report with the same job ID already exists.
var ErrDuplicate = errors.New("report already exists")

// Store is the persistence contract for report jobs.
type Store interface {
	// Create inserts a new report record. Fails with ErrDuplicate if the
	// job ID is already taken.
	Create(ctx context.Context, r *models.Report) error

	// GetByJobID loads a report by its external job identifier.
	GetByJobID(ctx context.Context, jobID string) (*models.Report, error)

	// Update persists the current state of the report. Used at each
	// pipeline checkpoint; the whole record is written, not single fields.
	Update(ctx context.Context, r *models.Report) error

	// ListExpired returns reports past their retention horizon at the
	// given instant. Consumed by the cleanup sweep, never by the pipeline.
	ListExpired(ctx context.Context, now time.Time) ([]*models.Report, error)

	// Delete removes a report record by internal ID.
	Delete(ctx context.Context, id string) error

	// NextPending atomically claims the oldest pending report by moving it
	// to processing, or returns ErrNotFound when the queue is empty. Used
	// by the polling worker.
	NextPending(ctx context.Context) (*models.Report, error)
}
