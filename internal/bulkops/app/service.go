package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/excel"
)

var (
	jobsSubmittedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bulkops",
			Name:      "jobs_submitted_total",
			Help:      "Total number of bulk job submissions by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: accepted, rejected, failed
	)
	fanoutMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bulkops",
			Name:      "fanout_messages_total",
			Help:      "Total number of fan-out messages by kind and publish result.",
		},
		[]string{"kind", "result"}, // result: published, failed
	)
)

// perRecipientEstimate is the rough processing time per recipient used for
// completion estimates.
const perRecipientEstimate = 30 * time.Second

// ErrFanOutFailed is returned when not a single message could be queued; the
// job is marked failed and the caller should retry.
var ErrFanOutFailed = errors.New("no messages could be queued; please retry")

// RecipientReader abstracts the spreadsheet parser.
type RecipientReader interface {
	Parse(data []byte, schema excel.Schema) ([]excel.Record, error)
}

// QueuePublisher abstracts the message broker's publish side.
type QueuePublisher interface {
	PublishWithCorrelation(ctx context.Context, subject string, data []byte, correlationID string) error
}

// QueueSubjects maps each job kind to its fan-out subject. Subjects are
// configuration, never derived from request data.
type QueueSubjects map[domain.JobKind]string

// BulkJobService runs the bulk distribution pipeline: parse and validate the
// uploaded sheet, estimate code availability, create the durable job, fan it
// out to the queue, and serve status reads and worker progress reports.
type BulkJobService struct {
	jobs      domain.BulkJobRepository
	codePool  domain.CodePoolRepository
	reader    RecipientReader
	publisher QueuePublisher
	subjects  QueueSubjects
	logger    *slog.Logger
}

func NewBulkJobService(
	jobs domain.BulkJobRepository,
	codePool domain.CodePoolRepository,
	reader RecipientReader,
	publisher QueuePublisher,
	subjects QueueSubjects,
	logger *slog.Logger,
) *BulkJobService {
	return &BulkJobService{
		jobs:      jobs,
		codePool:  codePool,
		reader:    reader,
		publisher: publisher,
		subjects:  subjects,
		logger:    logger.With("service", "bulk_jobs"),
	}
}

// SubmitOptions carries one bulk submission.
type SubmitOptions struct {
	Kind      domain.JobKind
	SponsorID uuid.UUID
	FileName  string
	FileData  []byte

	// SendSMS applies to code distribution and dealer invitations.
	SendSMS bool
	// InvitationType distinguishes dealer invitation templates.
	InvitationType string
	// Channel ("SMS" or "WhatsApp") and CustomMessage apply to farmer
	// invitations.
	Channel       string
	CustomMessage string
}

// JobSubmissionResult is returned to the caller on an accepted submission.
type JobSubmissionResult struct {
	JobID               uuid.UUID        `json:"job_id"`
	TotalRecipients     int              `json:"total_recipients"`
	RequiredUnits       int              `json:"required_units"`
	AvailableUnits      int              `json:"available_units"`
	Status              domain.JobStatus `json:"status"`
	CreatedAt           time.Time        `json:"created_at"`
	StatusCheckPath     string           `json:"status_check_path"`
	EstimatedCompletion time.Time        `json:"estimated_completion"`
}

// SubmitBulkJob runs the full pipeline synchronously. Rejections
// (*ValidationError) happen before any durable state exists. Once the job
// row is created, cancellation no longer rolls anything back: a pending or
// partially fanned-out job is left for operational cleanup.
func (s *BulkJobService) SubmitBulkJob(ctx context.Context, opts SubmitOptions) (*JobSubmissionResult, error) {
	spec, ok := kindSpecs[opts.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown job kind %q", opts.Kind)
	}
	logger := s.logger.With("kind", opts.Kind, "sponsor_id", opts.SponsorID)
	logger.InfoContext(ctx, "Starting bulk job submission",
		"file_name", opts.FileName, "file_size", len(opts.FileData))

	if verr := validateFileMeta(opts.FileName, opts.FileData); verr != nil {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		return nil, verr
	}

	// Code distribution draws from one concrete purchase, located before
	// parsing so an exhausted pool short-circuits cheaply.
	var purchaseID uuid.NullUUID
	if spec.usesPurchase {
		purchase, err := s.codePool.FindLatestPurchaseWithAvailableCodes(ctx, opts.SponsorID)
		if err != nil {
			if errors.Is(err, domain.ErrNoPurchaseAvailable) {
				jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
				return nil, newValidationError("no completed purchase with available codes; purchase a sponsorship package first")
			}
			return nil, fmt.Errorf("failed to locate purchase: %w", err)
		}
		purchaseID = uuid.NullUUID{UUID: purchase.ID, Valid: true}
		logger.InfoContext(ctx, "Auto-selected purchase",
			"purchase_id", purchase.ID, "available_codes", purchase.AvailableCodes)
	}

	records, err := s.reader.Parse(opts.FileData, spec.schema)
	if err != nil {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		return nil, newValidationError(fmt.Sprintf("failed to read spreadsheet: %v", err))
	}
	if len(records) == 0 {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		return nil, newValidationError("spreadsheet contains no valid rows")
	}
	if len(records) > MaxRowCount {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		return nil, newValidationError(fmt.Sprintf(
			"too many rows: maximum %d recipients per upload, file has %d", MaxRowCount, len(records)))
	}

	rows, verr := validateRows(records, spec)
	if verr != nil {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		return nil, verr
	}

	estimate, err := s.checkAvailability(ctx, rows, opts.SponsorID, purchaseID)
	if err != nil {
		var availErr *ValidationError
		if errors.As(err, &availErr) {
			jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "rejected").Inc()
		}
		return nil, err
	}

	job := domain.NewBulkDistributionJob(opts.SponsorID, opts.Kind, len(rows), opts.FileName, int64(len(opts.FileData)))
	job.PurchaseID = purchaseID
	job.SendSMS = opts.SendSMS
	if opts.Kind == domain.KindCodeDistribution {
		if opts.SendSMS {
			job.DeliveryMethod = "Both"
		} else {
			job.DeliveryMethod = "Direct"
		}
	}
	if opts.Kind == domain.KindFarmerInvitation {
		job.SendSMS = !strings.EqualFold(opts.Channel, "WhatsApp")
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "failed").Inc()
		return nil, fmt.Errorf("failed to create bulk job: %w", err)
	}
	logger = logger.With("job_id", job.ID)
	logger.InfoContext(ctx, "Bulk job created",
		"total_recipients", job.TotalRecipients, "required_units", estimate.RequiredUnits)

	published := s.fanOut(ctx, job, rows, opts, logger)

	if published == 0 {
		if err := s.jobs.MarkFailed(ctx, job.ID, "no messages could be queued"); err != nil {
			logger.ErrorContext(ctx, "Failed to mark job failed after total fan-out failure", "error", err)
		}
		jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "failed").Inc()
		return nil, ErrFanOutFailed
	}

	startedAt := time.Now().UTC()
	if err := s.jobs.MarkProcessing(ctx, job.ID, startedAt); err != nil {
		// Messages are already on the queue; the job record is stale but the
		// work proceeds. Log loudly and report success to the caller.
		logger.ErrorContext(ctx, "Failed to mark job processing after fan-out", "error", err)
	}

	logger.InfoContext(ctx, "Fan-out complete",
		"published", published, "total", len(rows))
	jobsSubmittedCounter.WithLabelValues(string(opts.Kind), "accepted").Inc()

	return &JobSubmissionResult{
		JobID:               job.ID,
		TotalRecipients:     job.TotalRecipients,
		RequiredUnits:       estimate.RequiredUnits,
		AvailableUnits:      estimate.AvailableUnits,
		Status:              domain.StatusProcessing,
		CreatedAt:           job.CreatedAt,
		StatusCheckPath:     fmt.Sprintf("/api/v1/sponsorship/bulk-jobs/%s", job.ID),
		EstimatedCompletion: job.CreatedAt.Add(time.Duration(job.TotalRecipients) * perRecipientEstimate),
	}, nil
}

// fanOut publishes one message per row and returns the number of successful
// publishes. Every row is attempted regardless of earlier failures; per-row
// failures are logged and counted, never surfaced to the caller.
func (s *BulkJobService) fanOut(
	ctx context.Context,
	job *domain.BulkDistributionJob,
	rows []domain.RecipientRow,
	opts SubmitOptions,
	logger *slog.Logger,
) int {
	subject := s.subjects[job.Kind]
	correlationID := job.ID.String()
	published := 0

	for _, row := range rows {
		msg := domain.DistributionQueueMessage{
			CorrelationID:  correlationID,
			RowNumber:      row.RowNumber,
			JobID:          job.ID,
			SponsorID:      job.SponsorID,
			Tier:           row.Tier,
			Quantity:       row.Quantity,
			Email:          row.Email,
			Phone:          row.Phone,
			Name:           row.Name,
			Notes:          row.Notes,
			SendSMS:        job.SendSMS,
			InvitationType: opts.InvitationType,
			Channel:        opts.Channel,
			CustomMessage:  opts.CustomMessage,
			QueuedAt:       time.Now().UTC(),
		}
		if job.PurchaseID.Valid {
			id := job.PurchaseID.UUID
			msg.PurchaseID = &id
		}

		data, err := json.Marshal(msg)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to marshal queue message",
				"row", row.RowNumber, "error", err)
			fanoutMessagesCounter.WithLabelValues(string(job.Kind), "failed").Inc()
			continue
		}

		if err := s.publisher.PublishWithCorrelation(ctx, subject, data, correlationID); err != nil {
			logger.WarnContext(ctx, "Failed to publish queue message",
				"row", row.RowNumber, "subject", subject, "error", err)
			fanoutMessagesCounter.WithLabelValues(string(job.Kind), "failed").Inc()
			continue
		}
		fanoutMessagesCounter.WithLabelValues(string(job.Kind), "published").Inc()
		published++
	}

	return published
}
