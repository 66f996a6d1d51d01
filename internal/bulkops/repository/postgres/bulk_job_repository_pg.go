package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

// DBPool is the subset of pgxpool.Pool the repositories use, an interface so
// tests can substitute a mock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bulkJobColumns = `id, sponsor_id, kind, purchase_id, total_recipients, processed_count,
	successful_count, failed_count, status, send_sms, delivery_method,
	original_file_name, file_size, error_summary, created_at, started_at, completed_at, updated_at`

type PgBulkJobRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewPgBulkJobRepository(db DBPool, logger *slog.Logger) *PgBulkJobRepository {
	return &PgBulkJobRepository{db: db, logger: logger}
}

func (r *PgBulkJobRepository) Create(ctx context.Context, job *domain.BulkDistributionJob) error {
	query := `
		INSERT INTO bulk_distribution_jobs (` + bulkJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID, job.SponsorID, job.Kind, job.PurchaseID, job.TotalRecipients, job.ProcessedCount,
		job.SuccessfulCount, job.FailedCount, job.Status, job.SendSMS, job.DeliveryMethod,
		job.OriginalFileName, job.FileSize, job.ErrorSummary, job.CreatedAt, job.StartedAt,
		job.CompletedAt, job.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating bulk distribution job", "error", err, "job_id", job.ID)
		return err
	}
	r.logger.InfoContext(ctx, "Bulk distribution job created", "job_id", job.ID, "kind", job.Kind)
	return nil
}

func (r *PgBulkJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BulkDistributionJob, error) {
	query := `SELECT ` + bulkJobColumns + ` FROM bulk_distribution_jobs WHERE id = $1`
	job := &domain.BulkDistributionJob{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.SponsorID, &job.Kind, &job.PurchaseID, &job.TotalRecipients, &job.ProcessedCount,
		&job.SuccessfulCount, &job.FailedCount, &job.Status, &job.SendSMS, &job.DeliveryMethod,
		&job.OriginalFileName, &job.FileSize, &job.ErrorSummary, &job.CreatedAt, &job.StartedAt,
		&job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Bulk distribution job not found", "job_id", id)
			return nil, domain.ErrJobNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting bulk distribution job by ID", "error", err, "job_id", id)
		return nil, err
	}
	return job, nil
}

func (r *PgBulkJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `
		UPDATE bulk_distribution_jobs
		SET status = $1, started_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusProcessing, startedAt, time.Now().UTC(), id, domain.StatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking bulk job as processing", "error", err, "job_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Bulk job not found or not pending for processing transition", "job_id", id)
		return domain.ErrJobNotFound
	}
	r.logger.InfoContext(ctx, "Bulk job marked as processing", "job_id", id)
	return nil
}

func (r *PgBulkJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorSummary string) error {
	query := `
		UPDATE bulk_distribution_jobs
		SET status = $1, error_summary = $2, completed_at = $3, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusFailed, errorSummary, time.Now().UTC(), id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking bulk job as failed", "error", err, "job_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Bulk job not found for failure transition", "job_id", id)
		return domain.ErrJobNotFound
	}
	r.logger.InfoContext(ctx, "Bulk job marked as failed", "job_id", id, "error_summary", errorSummary)
	return nil
}

// ApplyProgress increments the counters and flips the status to its terminal
// value in one UPDATE, so concurrent worker reports interleave safely.
// Reports are accepted while the job is pending or processing: workers may
// consume early messages before the fan-out loop finishes and MarkProcessing
// runs. A zero-row update is disambiguated into not-found, exceeds-total, or
// terminal-job by re-reading the job.
func (r *PgBulkJobRepository) ApplyProgress(ctx context.Context, id uuid.UUID, succeeded bool) (*domain.BulkDistributionJob, error) {
	successIncrement := 0
	failureIncrement := 0
	if succeeded {
		successIncrement = 1
	} else {
		failureIncrement = 1
	}

	query := `
		UPDATE bulk_distribution_jobs
		SET processed_count = processed_count + 1,
		    successful_count = successful_count + $1,
		    failed_count = failed_count + $2,
		    status = CASE
		        WHEN processed_count + 1 < total_recipients THEN status
		        WHEN failed_count + $2 = 0 THEN $3
		        WHEN successful_count + $1 = 0 THEN $4
		        ELSE $5
		    END,
		    completed_at = CASE
		        WHEN processed_count + 1 >= total_recipients THEN $6
		        ELSE completed_at
		    END,
		    updated_at = $6
		WHERE id = $7 AND status IN ($8, $9) AND processed_count < total_recipients
		RETURNING ` + bulkJobColumns + `
	`
	now := time.Now().UTC()
	job := &domain.BulkDistributionJob{}
	err := r.db.QueryRow(ctx, query,
		successIncrement, failureIncrement,
		domain.StatusCompleted, domain.StatusFailed, domain.StatusPartialSuccess,
		now, id, domain.StatusPending, domain.StatusProcessing,
	).Scan(
		&job.ID, &job.SponsorID, &job.Kind, &job.PurchaseID, &job.TotalRecipients, &job.ProcessedCount,
		&job.SuccessfulCount, &job.FailedCount, &job.Status, &job.SendSMS, &job.DeliveryMethod,
		&job.OriginalFileName, &job.FileSize, &job.ErrorSummary, &job.CreatedAt, &job.StartedAt,
		&job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing.ProcessedCount >= existing.TotalRecipients {
				r.logger.WarnContext(ctx, "Progress report against fully processed bulk job", "job_id", id)
				return nil, domain.ErrProgressExceedsTotal
			}
			r.logger.WarnContext(ctx, "Progress report against terminal bulk job",
				"job_id", id, "status", existing.Status)
			return nil, domain.ErrJobNotAcceptingProgress
		}
		r.logger.ErrorContext(ctx, "Error applying progress to bulk job", "error", err, "job_id", id)
		return nil, err
	}
	return job, nil
}

func (r *PgBulkJobRepository) ListBySponsor(ctx context.Context, sponsorID uuid.UUID, status domain.JobStatus, offset, limit int) ([]*domain.BulkDistributionJob, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + bulkJobColumns + ` FROM bulk_distribution_jobs WHERE sponsor_id = $1`)

	args := []interface{}{sponsorID}
	if status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", len(args)+1))
		args = append(args, status)
	}
	query.WriteString(" ORDER BY created_at DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query.String(), args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing bulk jobs by sponsor", "error", err, "sponsor_id", sponsorID)
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.BulkDistributionJob
	for rows.Next() {
		job := &domain.BulkDistributionJob{}
		if err := rows.Scan(
			&job.ID, &job.SponsorID, &job.Kind, &job.PurchaseID, &job.TotalRecipients, &job.ProcessedCount,
			&job.SuccessfulCount, &job.FailedCount, &job.Status, &job.SendSMS, &job.DeliveryMethod,
			&job.OriginalFileName, &job.FileSize, &job.ErrorSummary, &job.CreatedAt, &job.StartedAt,
			&job.CompletedAt, &job.UpdatedAt,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning bulk job row during list", "error", err)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating bulk job rows during list", "error", err)
		return nil, err
	}
	return jobs, nil
}
