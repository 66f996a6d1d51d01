package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/agrovane/golang_services/internal/bulkops/app"
	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/middleware"
)

// uploadFieldName is the multipart field carrying the spreadsheet.
const uploadFieldName = "file"

// GenericErrorResponse is the standard error body.
type GenericErrorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// ProgressReportRequest DTO for POST /internal/bulk-jobs/{jobID}/progress
type ProgressReportRequest struct {
	RowNumber int   `json:"row_number" validate:"required,min=1"`
	Succeeded *bool `json:"succeeded" validate:"required"`
}

type BulkJobHandler struct {
	service  *app.BulkJobService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewBulkJobHandler(service *app.BulkJobService, logger *slog.Logger) *BulkJobHandler {
	return &BulkJobHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("handler", "bulk_jobs"),
	}
}

// RegisterRoutes registers the sponsor-facing routes. The router is expected
// to already carry the auth middleware.
func (h *BulkJobHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sponsorship/bulk-code-distribution", h.handleCodeDistribution)
	r.Post("/sponsorship/dealer-invitations/bulk", h.handleDealerInvitations)
	r.Post("/sponsorship/farmer-invitations/bulk", h.handleFarmerInvitations)
	r.Get("/sponsorship/bulk-jobs/{jobID}", h.handleGetJobStatus)
	r.Get("/sponsorship/bulk-jobs", h.handleListJobs)
}

// RegisterWorkerRoutes registers the worker progress callback. The router is
// expected to carry the worker token middleware.
func (h *BulkJobHandler) RegisterWorkerRoutes(r chi.Router) {
	r.Post("/bulk-jobs/{jobID}/progress", h.handleReportProgress)
}

func (h *BulkJobHandler) handleCodeDistribution(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, domain.KindCodeDistribution, func(r *http.Request, opts *app.SubmitOptions) {
		opts.SendSMS = parseBoolField(r, "sendSms", false)
	})
}

func (h *BulkJobHandler) handleDealerInvitations(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, domain.KindDealerInvitation, func(r *http.Request, opts *app.SubmitOptions) {
		opts.SendSMS = parseBoolField(r, "sendSms", true)
		opts.InvitationType = r.FormValue("invitationType")
	})
}

func (h *BulkJobHandler) handleFarmerInvitations(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, domain.KindFarmerInvitation, func(r *http.Request, opts *app.SubmitOptions) {
		opts.Channel = r.FormValue("channel")
		opts.CustomMessage = r.FormValue("customMessage")
	})
}

// handleSubmit is the shared multipart submission flow; kind-specific fields
// are read by the options callback after the form is parsed.
func (h *BulkJobHandler) handleSubmit(w http.ResponseWriter, r *http.Request, kind domain.JobKind, applyOptions func(*http.Request, *app.SubmitOptions)) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx), "kind", kind)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "User not authenticated for bulk submission")
		h.jsonError(w, logger, "User not authenticated", http.StatusUnauthorized)
		return
	}
	logger = logger.With("auth_user_id", authUser.ID)

	// Cap the whole request body a little over the file cap so a grossly
	// oversized upload is cut off while streaming instead of being buffered
	// in full. Files between the cap and this limit still reach the size
	// validation and its friendlier error.
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxFileSizeBytes+1<<20)
	if err := r.ParseMultipartForm(app.MaxFileSizeBytes + 1<<20); err != nil {
		logger.WarnContext(ctx, "Failed to parse multipart form", "error", err)
		h.jsonError(w, logger, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		logger.WarnContext(ctx, "Upload file missing from form", "error", err)
		h.jsonError(w, logger, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read uploaded file", "error", err)
		h.jsonError(w, logger, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	opts := app.SubmitOptions{
		Kind:      kind,
		SponsorID: authUser.ID,
		FileName:  header.Filename,
		FileData:  data,
	}
	applyOptions(r, &opts)

	result, err := h.service.SubmitBulkJob(ctx, opts)
	if err != nil {
		var verr *app.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.InfoContext(ctx, "Bulk submission rejected", "errors", verr.Messages)
			h.jsonValidationError(w, verr)
		case errors.Is(err, app.ErrFanOutFailed):
			logger.ErrorContext(ctx, "Bulk submission fan-out failed entirely")
			h.jsonError(w, logger, err.Error(), http.StatusServiceUnavailable)
		default:
			logger.ErrorContext(ctx, "Bulk submission failed", "error", err)
			h.jsonError(w, logger, "Failed to submit bulk job", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

func (h *BulkJobHandler) handleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		h.jsonError(w, logger, "User not authenticated", http.StatusUnauthorized)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.jsonError(w, logger, "Invalid job ID format", http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.GetJobStatus(ctx, jobID, app.Requester{UserID: authUser.ID, IsAdmin: authUser.IsAdmin})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			h.jsonError(w, logger, "Job not found", http.StatusNotFound)
		case errors.Is(err, app.ErrForbidden):
			logger.WarnContext(ctx, "User attempted to access another sponsor's job",
				"job_id", jobID, "auth_user_id", authUser.ID)
			h.jsonError(w, logger, "Forbidden: you do not have permission to view this job", http.StatusForbidden)
		default:
			logger.ErrorContext(ctx, "Failed to get job status", "error", err, "job_id", jobID)
			h.jsonError(w, logger, "Failed to retrieve job status", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (h *BulkJobHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		h.jsonError(w, logger, "User not authenticated", http.StatusUnauthorized)
		return
	}

	status := domain.JobStatus(strings.ToLower(r.URL.Query().Get("status")))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	snapshots, err := h.service.ListJobs(ctx, authUser.ID, status, page, size)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list jobs", "error", err)
		h.jsonError(w, logger, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jobs": snapshots})
}

func (h *BulkJobHandler) handleReportProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.jsonError(w, logger, "Invalid job ID format", http.StatusBadRequest)
		return
	}

	var req ProgressReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, logger, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.jsonError(w, logger, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.ReportProgress(ctx, jobID, *req.Succeeded)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			h.jsonError(w, logger, "Job not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrProgressExceedsTotal):
			h.jsonError(w, logger, "Job already fully processed", http.StatusConflict)
		case errors.Is(err, domain.ErrJobNotAcceptingProgress):
			h.jsonError(w, logger, "Job is no longer accepting progress reports", http.StatusConflict)
		default:
			logger.ErrorContext(ctx, "Failed to apply progress report", "error", err, "job_id", jobID)
			h.jsonError(w, logger, "Failed to record progress", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (h *BulkJobHandler) jsonError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	logger.Warn("API error response", "status_code", statusCode, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(GenericErrorResponse{Error: message})
}

func (h *BulkJobHandler) jsonValidationError(w http.ResponseWriter, verr *app.ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(GenericErrorResponse{Error: "invalid submission", Errors: verr.Messages})
}

func parseBoolField(r *http.Request, field string, defaultValue bool) bool {
	raw := r.FormValue(field)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
