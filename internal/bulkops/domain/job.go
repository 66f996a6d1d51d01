package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// JobKind distinguishes the three bulk distribution flows. Each kind maps to
// its own queue subject and recipient schema.
type JobKind string

const (
	KindCodeDistribution JobKind = "code_distribution"
	KindDealerInvitation JobKind = "dealer_invitation"
	KindFarmerInvitation JobKind = "farmer_invitation"
)

// JobStatus represents the lifecycle state of a bulk distribution job.
//
//	pending -> processing -> completed | partial_success
//	pending -> failed
//
// The submission pipeline drives pending -> processing/failed; the worker's
// progress reports drive the terminal transition. Workers may start on
// queued messages before the fan-out loop finishes, so progress is accepted
// from pending onwards.
type JobStatus string

const (
	StatusPending        JobStatus = "pending"
	StatusProcessing     JobStatus = "processing"
	StatusCompleted      JobStatus = "completed"
	StatusFailed         JobStatus = "failed"
	StatusPartialSuccess JobStatus = "partial_success"
)

// BulkDistributionJob is the durable record of one upload-triggered
// distribution run. TotalRecipients is fixed at creation; the remaining
// counters only ever grow and processed never exceeds total.
type BulkDistributionJob struct {
	ID        uuid.UUID `json:"id"`
	SponsorID uuid.UUID `json:"sponsor_id"`
	Kind      JobKind   `json:"kind"`

	// PurchaseID scopes code-distribution jobs to the purchase the codes are
	// drawn from. Unset for invitation jobs.
	PurchaseID uuid.NullUUID `json:"purchase_id,omitempty"`

	TotalRecipients int `json:"total_recipients"`
	ProcessedCount  int `json:"processed_count"`
	SuccessfulCount int `json:"successful_count"`
	FailedCount     int `json:"failed_count"`

	Status JobStatus `json:"status"`

	SendSMS        bool   `json:"send_sms"`
	DeliveryMethod string `json:"delivery_method,omitempty"` // "Direct" or "Both"

	OriginalFileName string         `json:"original_file_name"`
	FileSize         int64          `json:"file_size"`
	ErrorSummary     sql.NullString `json:"error_summary,omitempty"`

	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   sql.NullTime `json:"started_at,omitempty"`
	CompletedAt sql.NullTime `json:"completed_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewBulkDistributionJob creates a job in pending state with counters at
// zero. The id is generated here; total and provenance are immutable after.
func NewBulkDistributionJob(sponsorID uuid.UUID, kind JobKind, totalRecipients int, fileName string, fileSize int64) *BulkDistributionJob {
	now := time.Now().UTC()
	return &BulkDistributionJob{
		ID:               uuid.New(),
		SponsorID:        sponsorID,
		Kind:             kind,
		TotalRecipients:  totalRecipients,
		Status:           StatusPending,
		OriginalFileName: fileName,
		FileSize:         fileSize,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ProgressPercentage derives the processed share for status snapshots.
func (j *BulkDistributionJob) ProgressPercentage() int {
	if j.TotalRecipients == 0 {
		return 0
	}
	return int(float64(j.ProcessedCount) * 100.0 / float64(j.TotalRecipients))
}

// TerminalStatus resolves the status a fully processed job ends in.
func TerminalStatus(successful, failed int) JobStatus {
	switch {
	case failed == 0:
		return StatusCompleted
	case successful == 0:
		return StatusFailed
	default:
		return StatusPartialSuccess
	}
}
