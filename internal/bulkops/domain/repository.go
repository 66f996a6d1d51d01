package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BulkJobRepository manages the durable job records. It is the only
// component allowed to mutate a job once created.
type BulkJobRepository interface {
	Create(ctx context.Context, job *BulkDistributionJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*BulkDistributionJob, error)

	// MarkProcessing transitions a pending job to processing with its start
	// timestamp, after at least one message reached the queue.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error

	// MarkFailed terminates a job with an error summary. Used when the
	// fan-out produced zero messages or an unexpected failure occurred
	// after creation.
	MarkFailed(ctx context.Context, id uuid.UUID, errorSummary string) error

	// ApplyProgress atomically records one worker-reported recipient
	// outcome: processed is incremented along with successful or failed,
	// and when processed reaches total the job flips to its terminal
	// status with a completion timestamp. Reports are accepted while the
	// job is pending or processing, since workers may consume messages
	// before the fan-out loop finishes and flips the status. Counters
	// never decrease; a report against a fully processed job returns
	// ErrProgressExceedsTotal, and one against a terminal job returns
	// ErrJobNotAcceptingProgress.
	ApplyProgress(ctx context.Context, id uuid.UUID, succeeded bool) (*BulkDistributionJob, error)

	// ListBySponsor returns a page of the sponsor's jobs, newest first,
	// optionally filtered by status.
	ListBySponsor(ctx context.Context, sponsorID uuid.UUID, status JobStatus, offset, limit int) ([]*BulkDistributionJob, error)
}

// AvailableCodesQuery scopes a code-pool count. Tier and PurchaseID narrow
// the count when set; the availability predicate itself (unused, unassigned,
// unreserved, unexpired) is fixed in the repository implementation.
type AvailableCodesQuery struct {
	SponsorID  uuid.UUID
	Tier       Tier
	PurchaseID uuid.NullUUID
}

// PurchaseRef identifies a sponsor's completed purchase that still has
// available codes.
type PurchaseRef struct {
	ID             uuid.UUID
	PurchaseDate   time.Time
	AvailableCodes int
}

// CodePoolRepository reads the shared redemption-code pool. All operations
// are point-in-time counts: nothing is claimed, reserved, or locked here, so
// two concurrent submissions may both observe the same availability.
type CodePoolRepository interface {
	CountAvailable(ctx context.Context, q AvailableCodesQuery) (int, error)

	// FindLatestPurchaseWithAvailableCodes returns the sponsor's most
	// recent completed purchase that still has available codes, or
	// ErrNoPurchaseAvailable.
	FindLatestPurchaseWithAvailableCodes(ctx context.Context, sponsorID uuid.UUID) (*PurchaseRef, error)
}
