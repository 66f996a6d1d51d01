package domain

import "errors"

var (
	// ErrJobNotFound indicates that no bulk job exists for the given id.
	ErrJobNotFound = errors.New("bulk job not found")
	// ErrNoPurchaseAvailable indicates that the sponsor has no completed
	// purchase with unassigned, unexpired codes left.
	ErrNoPurchaseAvailable = errors.New("no purchase with available codes")
	// ErrProgressExceedsTotal indicates a progress report arrived after the
	// job's processed count already reached its total.
	ErrProgressExceedsTotal = errors.New("progress report exceeds total recipients")
	// ErrJobNotAcceptingProgress indicates a progress report against a job
	// in a terminal state (failed before its counters filled up).
	ErrJobNotAcceptingProgress = errors.New("job is not accepting progress reports")
)
