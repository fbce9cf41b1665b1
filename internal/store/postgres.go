package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

const reportColumns = `id, job_id, status, file_path, file_type, age, gender, language,
	ocr_text, result_json, result_markdown, result_pdf_path, error_message,
	source, whatsapp_number, ip_address, expires_at, created_at, updated_at`

// Postgres is the pgx-backed Store implementation.
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgres connects a store to an existing pgx pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool: pool,
		log:  logger.WithComponent("store"),
	}
}

// Connect opens a pgx pool for the given database URL and pings it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *Postgres) Create(ctx context.Context, r *models.Report) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		r.ID, r.JobID, r.Status, r.FilePath, r.FileType, r.Age, r.Gender, r.Language,
		nullable(r.OCRText), nullable(r.ResultJSON), nullable(r.ResultMarkdown),
		nullable(r.ResultPDFPath), nullable(r.ErrorMessage),
		r.Source, nullable(r.WhatsAppNumber), nullable(r.IPAddress),
		r.ExpiresAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	s.log.Debug().Str("job_id", r.JobID).Msg("report created")
	return nil
}

func (s *Postgres) GetByJobID(ctx context.Context, jobID string) (*models.Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE job_id = $1`, jobID)
	return scanReport(row)
}

func (s *Postgres) Update(ctx context.Context, r *models.Report) error {
	r.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE reports SET
			status = $2, ocr_text = $3, result_json = $4, result_markdown = $5,
			result_pdf_path = $6, error_message = $7, updated_at = $8
		WHERE id = $1`,
		r.ID, r.Status, nullable(r.OCRText), nullable(r.ResultJSON),
		nullable(r.ResultMarkdown), nullable(r.ResultPDFPath),
		nullable(r.ErrorMessage), r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListExpired(ctx context.Context, now time.Time) ([]*models.Report, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextPending claims the oldest pending report by flipping it to processing
// in one statement. SKIP LOCKED keeps concurrent workers off the same job.
func (s *Postgres) NextPending(ctx context.Context) (*models.Report, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE reports SET status = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM reports
			WHERE status = $2
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+reportColumns, models.StatusProcessing, models.StatusPending)
	return scanReport(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var ocrText, resultJSON, resultMarkdown, resultPDFPath, errorMessage *string
	var whatsappNumber, ipAddress *string

	err := row.Scan(
		&r.ID, &r.JobID, &r.Status, &r.FilePath, &r.FileType, &r.Age, &r.Gender, &r.Language,
		&ocrText, &resultJSON, &resultMarkdown, &resultPDFPath, &errorMessage,
		&r.Source, &whatsappNumber, &ipAddress,
		&r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.OCRText = deref(ocrText)
	r.ResultJSON = deref(resultJSON)
	r.ResultMarkdown = deref(resultMarkdown)
	r.ResultPDFPath = deref(resultPDFPath)
	r.ErrorMessage = deref(errorMessage)
	r.WhatsAppNumber = deref(whatsappNumber)
	r.IPAddress = deref(ipAddress)
	return &r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	// pgconn.PgError code 23505
	type coder interface{ SQLState() string }
	var pgErr coder
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
