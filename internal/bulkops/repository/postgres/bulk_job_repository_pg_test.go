package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

var bulkJobColumnNames = []string{
	"id", "sponsor_id", "kind", "purchase_id", "total_recipients", "processed_count",
	"successful_count", "failed_count", "status", "send_sms", "delivery_method",
	"original_file_name", "file_size", "error_summary", "created_at", "started_at",
	"completed_at", "updated_at",
}

func jobRow(mockPool pgxmock.PgxPoolIface, job *domain.BulkDistributionJob) *pgxmock.Rows {
	return mockPool.NewRows(bulkJobColumnNames).AddRow(
		job.ID, job.SponsorID, job.Kind, job.PurchaseID, job.TotalRecipients, job.ProcessedCount,
		job.SuccessfulCount, job.FailedCount, job.Status, job.SendSMS, job.DeliveryMethod,
		job.OriginalFileName, job.FileSize, job.ErrorSummary, job.CreatedAt, job.StartedAt,
		job.CompletedAt, job.UpdatedAt,
	)
}

func TestPgBulkJobRepository_ApplyProgress(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobID := uuid.New()

	t.Run("accepted while still pending", func(t *testing.T) {
		// Workers may consume fan-out messages before the submission loop
		// finishes and the job flips to processing.
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgBulkJobRepository(mockPool, logger)

		updated := domain.NewBulkDistributionJob(uuid.New(), domain.KindCodeDistribution, 5, "r.xlsx", 100)
		updated.ID = jobID
		updated.ProcessedCount = 1
		updated.SuccessfulCount = 1

		mockPool.ExpectQuery(`UPDATE bulk_distribution_jobs`).
			WithArgs(1, 0,
				domain.StatusCompleted, domain.StatusFailed, domain.StatusPartialSuccess,
				pgxmock.AnyArg(), jobID, domain.StatusPending, domain.StatusProcessing).
			WillReturnRows(jobRow(mockPool, updated))

		job, err := repo.ApplyProgress(context.Background(), jobID, true)
		require.NoError(t, err)
		assert.Equal(t, 1, job.ProcessedCount)
		assert.Equal(t, domain.StatusPending, job.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("fully processed job returns exceeds-total", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgBulkJobRepository(mockPool, logger)

		done := domain.NewBulkDistributionJob(uuid.New(), domain.KindCodeDistribution, 2, "r.xlsx", 100)
		done.ID = jobID
		done.ProcessedCount = 2
		done.SuccessfulCount = 2
		done.Status = domain.StatusCompleted
		done.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

		mockPool.ExpectQuery(`UPDATE bulk_distribution_jobs`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT .* FROM bulk_distribution_jobs WHERE id = \$1`).
			WithArgs(jobID).
			WillReturnRows(jobRow(mockPool, done))

		_, err = repo.ApplyProgress(context.Background(), jobID, false)
		assert.ErrorIs(t, err, domain.ErrProgressExceedsTotal)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("failed job returns not-accepting", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgBulkJobRepository(mockPool, logger)

		failed := domain.NewBulkDistributionJob(uuid.New(), domain.KindCodeDistribution, 5, "r.xlsx", 100)
		failed.ID = jobID
		failed.Status = domain.StatusFailed
		failed.ErrorSummary = sql.NullString{String: "no messages could be queued", Valid: true}

		mockPool.ExpectQuery(`UPDATE bulk_distribution_jobs`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT .* FROM bulk_distribution_jobs WHERE id = \$1`).
			WithArgs(jobID).
			WillReturnRows(jobRow(mockPool, failed))

		_, err = repo.ApplyProgress(context.Background(), jobID, true)
		assert.ErrorIs(t, err, domain.ErrJobNotAcceptingProgress)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("unknown job returns not-found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgBulkJobRepository(mockPool, logger)

		mockPool.ExpectQuery(`UPDATE bulk_distribution_jobs`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT .* FROM bulk_distribution_jobs WHERE id = \$1`).
			WithArgs(jobID).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.ApplyProgress(context.Background(), jobID, true)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
