package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

// ErrForbidden is returned when a sponsor reads a job they do not own.
var ErrForbidden = errors.New("job belongs to another sponsor")

// JobSnapshot is the read model served to status polls. Remaining time is a
// rough estimate and omitted once the job is terminal.
type JobSnapshot struct {
	JobID              uuid.UUID        `json:"job_id"`
	Kind               domain.JobKind   `json:"kind"`
	Status             domain.JobStatus `json:"status"`
	TotalRecipients    int              `json:"total_recipients"`
	ProcessedCount     int              `json:"processed_count"`
	SuccessfulCount    int              `json:"successful_count"`
	FailedCount        int              `json:"failed_count"`
	ProgressPercentage int              `json:"progress_percentage"`
	OriginalFileName   string           `json:"original_file_name"`
	ErrorSummary       string           `json:"error_summary,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	EstimatedRemaining string           `json:"estimated_remaining,omitempty"`
}

func snapshotFromJob(job *domain.BulkDistributionJob) *JobSnapshot {
	snap := &JobSnapshot{
		JobID:              job.ID,
		Kind:               job.Kind,
		Status:             job.Status,
		TotalRecipients:    job.TotalRecipients,
		ProcessedCount:     job.ProcessedCount,
		SuccessfulCount:    job.SuccessfulCount,
		FailedCount:        job.FailedCount,
		ProgressPercentage: job.ProgressPercentage(),
		OriginalFileName:   job.OriginalFileName,
		CreatedAt:          job.CreatedAt,
	}
	if job.ErrorSummary.Valid {
		snap.ErrorSummary = job.ErrorSummary.String
	}
	if job.StartedAt.Valid {
		t := job.StartedAt.Time
		snap.StartedAt = &t
	}
	if job.CompletedAt.Valid {
		t := job.CompletedAt.Time
		snap.CompletedAt = &t
	}
	if job.Status == domain.StatusPending || job.Status == domain.StatusProcessing {
		remaining := job.TotalRecipients - job.ProcessedCount
		if remaining > 0 {
			snap.EstimatedRemaining = (time.Duration(remaining) * perRecipientEstimate).String()
		}
	}
	return snap
}

// Requester identifies the authenticated caller of a status read.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// GetJobStatus returns a snapshot of one job. Non-admin callers only see
// their own jobs; a foreign job yields ErrForbidden, not ErrJobNotFound, so
// the handler can distinguish 403 from 404.
func (s *BulkJobService) GetJobStatus(ctx context.Context, jobID uuid.UUID, req Requester) (*JobSnapshot, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get bulk job %s: %w", jobID, err)
	}
	if !req.IsAdmin && job.SponsorID != req.UserID {
		return nil, ErrForbidden
	}
	return snapshotFromJob(job), nil
}

// ListJobs returns the caller's job history, newest first, optionally
// filtered by status. Page is 1-based.
func (s *BulkJobService) ListJobs(ctx context.Context, sponsorID uuid.UUID, status domain.JobStatus, page, size int) ([]*JobSnapshot, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	jobs, err := s.jobs.ListBySponsor(ctx, sponsorID, status, (page-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list bulk jobs: %w", err)
	}
	snapshots := make([]*JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, snapshotFromJob(job))
	}
	return snapshots, nil
}
