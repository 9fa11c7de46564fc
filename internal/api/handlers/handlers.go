package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/lifeos/internal/api/middleware"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/jobs"
	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/dvloznov/lifeos/internal/pipeline"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ExpenseSubmitter is satisfied by *pipeline.ExpensePipeline.
type ExpenseSubmitter interface {
	Submit(ctx context.Context, ownerID, text string) (*domain.TransactionRecord, error)
}

// PlanSubmitter is satisfied by *pipeline.PlanPipeline.
type PlanSubmitter interface {
	Submit(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error)
}

// ExpensesHandler handles expense endpoints.
type ExpensesHandler struct {
	pipeline     ExpenseSubmitter
	reader       ledger.Reader
	pollInterval time.Duration
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(p ExpenseSubmitter, reader ledger.Reader, pollInterval time.Duration) *ExpensesHandler {
	return &ExpensesHandler{pipeline: p, reader: reader, pollInterval: pollInterval}
}

// SubmitExpense handles POST /api/expenses
func (h *ExpensesHandler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SMS string `json:"sms"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.pipeline.Submit(r.Context(), middleware.OwnerFromContext(r.Context()), req.SMS)
	if err != nil {
		writeFailure(w, r, err, "Failed to record expense")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, rec)
}

// ListExpenses handles GET /api/expenses
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	recs, err := h.reader.ListTransactions(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeFailure(w, r, err, "Failed to list expenses")
		return
	}
	if recs == nil {
		recs = []*domain.TransactionRecord{}
	}
	middleware.WriteSuccess(w, http.StatusOK, recs)
}

// StreamExpenses handles GET /api/expenses/stream
func (h *ExpensesHandler) StreamExpenses(w http.ResponseWriter, r *http.Request) {
	ch := ledger.WatchTransactions(r.Context(), h.reader, middleware.OwnerFromContext(r.Context()), h.pollInterval)
	streamSnapshots(w, r, ch)
}

// PlansHandler handles plan endpoints, including asynchronous submission.
type PlansHandler struct {
	pipeline     PlanSubmitter
	reader       ledger.Reader
	publisher    jobs.Publisher
	maxRetries   int
	pollInterval time.Duration
}

// NewPlansHandler creates a new plans handler. publisher may be nil, which
// disables POST /api/plans/async.
func NewPlansHandler(p PlanSubmitter, reader ledger.Reader, publisher jobs.Publisher, maxRetries int, pollInterval time.Duration) *PlansHandler {
	return &PlansHandler{
		pipeline:     p,
		reader:       reader,
		publisher:    publisher,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
	}
}

type planRequest struct {
	PlanInput string `json:"planInput"`
}

// SubmitPlan handles POST /api/plans
func (h *PlansHandler) SubmitPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.pipeline.Submit(r.Context(), middleware.OwnerFromContext(r.Context()), req.PlanInput)
	if err != nil {
		writeFailure(w, r, err, "Failed to process plan")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, rec)
}

// EnqueuePlan handles POST /api/plans/async
func (h *PlansHandler) EnqueuePlan(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Asynchronous processing is disabled")
		return
	}

	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PlanInput) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid plan input provided.")
		return
	}

	ctx := r.Context()
	job := &jobs.PlanJob{
		OwnerID:    middleware.OwnerFromContext(ctx),
		RawInput:   req.PlanInput,
		MaxRetries: h.maxRetries,
	}
	if err := h.publisher.PublishPlan(ctx, job); err != nil {
		writeFailure(w, r, err, "Failed to enqueue plan")
		return
	}

	log := logger.FromContext(ctx)
	log.Info().Str("job_id", job.JobID).Msg("Plan job enqueued")
	middleware.WriteSuccess(w, http.StatusAccepted, planJobAccepted{
		JobID:     job.JobID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

type planJobAccepted struct {
	JobID     string         `json:"job_id"`
	Status    jobs.JobStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListPlans handles GET /api/plans
func (h *PlansHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	recs, err := h.reader.ListPlans(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeFailure(w, r, err, "Failed to list plans")
		return
	}
	if recs == nil {
		recs = []*domain.PlanRecord{}
	}
	middleware.WriteSuccess(w, http.StatusOK, recs)
}

// StreamPlans handles GET /api/plans/stream
func (h *PlansHandler) StreamPlans(w http.ResponseWriter, r *http.Request) {
	ch := ledger.WatchPlans(r.Context(), h.reader, middleware.OwnerFromContext(r.Context()), h.pollInterval)
	streamSnapshots(w, r, ch)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeFailure maps pipeline errors onto status codes: rejected input is
// 400, an unreachable generator is 502, anything else is 500.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	log := logger.FromContext(r.Context())

	var inputErr *pipeline.InputError
	if errors.As(err, &inputErr) {
		middleware.WriteError(w, http.StatusBadRequest, inputErr.Error())
		return
	}

	var svcErr *pipeline.ServiceError
	if errors.As(err, &svcErr) && svcErr.Collaborator == pipeline.CollaboratorGenerator {
		log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusBadGateway, message+": generation service unavailable")
		return
	}

	log.Error().Err(err).Msg(message)
	middleware.WriteError(w, http.StatusInternalServerError, message)
}
