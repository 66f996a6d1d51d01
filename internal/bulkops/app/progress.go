package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

// ReportProgress records one processed recipient on behalf of the worker and
// returns the job after the increment. The repository applies the increment
// and any terminal transition atomically, so concurrent reports from
// parallel worker instances never lose counts.
func (s *BulkJobService) ReportProgress(ctx context.Context, jobID uuid.UUID, succeeded bool) (*JobSnapshot, error) {
	job, err := s.jobs.ApplyProgress(ctx, jobID, succeeded)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) ||
			errors.Is(err, domain.ErrProgressExceedsTotal) ||
			errors.Is(err, domain.ErrJobNotAcceptingProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply progress to job %s: %w", jobID, err)
	}

	if job.Status != domain.StatusProcessing {
		s.logger.InfoContext(ctx, "Bulk job reached terminal state",
			"job_id", job.ID, "kind", job.Kind, "status", job.Status,
			"successful", job.SuccessfulCount, "failed", job.FailedCount)
	}
	return snapshotFromJob(job), nil
}
