package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"stagehand/internal/ingest/intake"
	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/service"
	dErrors "stagehand/pkg/domain-errors"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/httputil"
	"stagehand/pkg/platform/middleware/admin"
	"stagehand/pkg/platform/middleware/auth"
	request "stagehand/pkg/platform/middleware/request"
	pstrings "stagehand/pkg/platform/strings"
	"stagehand/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Intake registers batches and stages their records.
type Intake interface {
	CreateBatch(ctx context.Context, ac requestcontext.AuditContext, req models.NewBatch) (*models.BatchRun, error)
	StageRecords(ctx context.Context, ac requestcontext.AuditContext, batchID string, recs []models.NewRecord) ([]int64, error)
}

// Runner drives and cancels batch runs.
type Runner interface {
	Run(ctx context.Context, ac requestcontext.AuditContext, batchID string) (models.BatchSummary, error)
	Cancel(ctx context.Context, ac requestcontext.AuditContext, batchID string) error
}

// Query serves read-only views.
type Query interface {
	GetBatchReport(ctx context.Context, batchID string) (*models.BatchReport, error)
	ListBatches(ctx context.Context, limit int) ([]models.BatchReport, error)
	ListFailedRecords(ctx context.Context, filter models.FailedRecordFilter) ([]models.FailedRecord, error)
	ListRecords(ctx context.Context, batchID string) ([]models.StagingRecord, error)
	AuditTrail(ctx context.Context, kind audit.EntityKind, entityID string, limit int) ([]audit.Event, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, ac requestcontext.AuditContext, retentionDays int) (models.SweepResult, error)
}

type Recoverer interface {
	Recover(ctx context.Context, ac requestcontext.AuditContext) (models.RecoveryResult, error)
}

const (
	maxUploadBytes   = 64 << 20
	maxRecordsUpload = 50000
)

// Handler serves the operator API for batches, records and maintenance.
type Handler struct {
	intake    Intake
	runner    Runner
	query     Query
	sweeper   Sweeper
	recoverer Recoverer
	logger    *slog.Logger

	application   string
	retentionDays int
	adminToken    string
	jwtValidator  auth.JWTValidator
	latency       request.LatencyObserver
	requestLimit  time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithJWTValidator requires a bearer token on every route.
func WithJWTValidator(v auth.JWTValidator) Option {
	return func(h *Handler) { h.jwtValidator = v }
}

// WithAdminToken guards the maintenance routes.
func WithAdminToken(token string) Option {
	return func(h *Handler) { h.adminToken = token }
}

func WithLatencyObserver(o request.LatencyObserver) Option {
	return func(h *Handler) { h.latency = o }
}

func WithApplication(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.application = name
		}
	}
}

func WithRetentionDays(days int) Option {
	return func(h *Handler) {
		if days > 0 {
			h.retentionDays = days
		}
	}
}

// WithRequestTimeout bounds every request except run, which may take as long as the batch does.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestLimit = d
		}
	}
}

func New(intake Intake, runner Runner, query Query, sweeper Sweeper, recoverer Recoverer, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		intake:        intake,
		runner:        runner,
		query:         query,
		sweeper:       sweeper,
		recoverer:     recoverer,
		logger:        logger,
		application:   service.DefaultApplication,
		retentionDays: service.DefaultRetentionDays,
		requestLimit:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the ingest routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(request.Latency(h.latency))
		if h.jwtValidator != nil {
			r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		}

		r.Post("/batches/{batchID}/run", h.handleRun)

		r.Group(func(r chi.Router) {
			r.Use(timeout(h.requestLimit))
			r.Post("/batches", h.handleCreateBatch)
			r.Get("/batches", h.handleListBatches)
			r.Get("/batches/{batchID}", h.handleGetBatch)
			r.Post("/batches/{batchID}/records", h.handleStageRecords)
			r.Get("/batches/{batchID}/records", h.handleListRecords)
			r.Post("/batches/{batchID}/cancel", h.handleCancel)
			r.Get("/records/failed", h.handleListFailed)
			r.Get("/audit/{entityKind}/{entityID}", h.handleAuditTrail)

			r.Group(func(r chi.Router) {
				r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
				r.Post("/admin/sweep", h.handleSweep)
				r.Post("/admin/recover", h.handleRecover)
			})
		})
	})
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (h *Handler) auditContext(r *http.Request) requestcontext.AuditContext {
	return requestcontext.AuditContextFrom(r.Context(), h.application)
}

type createBatchRequest struct {
	BatchID      string `json:"batch_id"`
	BatchKind    string `json:"batch_kind"`
	SourceSystem string `json:"source_system"`
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create batch request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	batch, err := h.intake.CreateBatch(ctx, h.auditContext(r), models.NewBatch{
		ID:           req.BatchID,
		Kind:         models.BatchKind(req.BatchKind),
		SourceSystem: req.SourceSystem,
	})
	if err != nil {
		h.writeError(w, r, "failed to create batch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewBatchReport(*batch, time.Now()))
}

type stageResponse struct {
	BatchID    string  `json:"batch_id"`
	Staged     int     `json:"staged"`
	StagingIDs []int64 `json:"staging_ids"`
}

// handleStageRecords accepts text/csv or a JSON array. Records default to the
// batch kind; full sync uploads name each record's kind in a record_kind field
// or pass ?record_kind=.
func (h *Handler) handleStageRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "batchID")

	batch, err := h.query.GetBatchReport(ctx, batchID)
	if err != nil {
		h.writeError(w, r, "failed to load batch", err)
		return
	}
	kind := models.RecordKind("")
	if batch.Kind != models.BatchKindFullSync {
		kind = models.RecordKind(batch.Kind)
	}
	if raw := r.URL.Query().Get("record_kind"); raw != "" {
		kind, err = models.ParseRecordKind(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "record_kind must be one of customer, order, product"))
			return
		}
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var recs []models.NewRecord
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		recs, err = intake.DecodeCSV(body, kind, maxRecordsUpload)
	case "application/json", "":
		recs, err = intake.DecodeJSON(body, kind, maxRecordsUpload)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content type must be text/csv or application/json"))
		return
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "upload too large"))
			return
		}
		h.logger.WarnContext(ctx, "invalid upload",
			"request_id", request.GetRequestID(ctx),
			"batch_id", batchID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	ids, err := h.intake.StageRecords(ctx, h.auditContext(r), batchID, recs)
	if err != nil {
		h.writeError(w, r, "failed to stage records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, stageResponse{BatchID: batchID, Staged: len(ids), StagingIDs: ids})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context(), h.auditContext(r), chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeError(w, r, "batch run failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Cancel(r.Context(), h.auditContext(r), chi.URLParam(r, "batchID")); err != nil {
		h.writeError(w, r, "failed to cancel batch", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	report, err := h.query.GetBatchReport(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeError(w, r, "failed to load batch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}
	reports, err := h.query.ListBatches(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, "failed to list batches", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"batches": reports})
}

type recordResponse struct {
	ID             int64               `json:"staging_id"`
	BatchID        string              `json:"batch_id"`
	Kind           models.RecordKind   `json:"record_kind"`
	Status         models.RecordStatus `json:"status"`
	RawFields      models.Fields       `json:"raw_fields"`
	CreatedAt      time.Time           `json:"created_at"`
	ProcessedAt    *time.Time          `json:"processed_at,omitempty"`
	ErrorKind      models.ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage   *string             `json:"error_message,omitempty"`
	TargetEntityID *int64              `json:"target_entity_id,omitempty"`
}

func toRecordResponse(rec models.StagingRecord) recordResponse {
	return recordResponse{
		ID:             rec.ID,
		BatchID:        rec.BatchID,
		Kind:           rec.Kind,
		Status:         rec.Status,
		RawFields:      rec.RawFields,
		CreatedAt:      rec.CreatedAt,
		ProcessedAt:    rec.ProcessedAt,
		ErrorKind:      rec.ErrorKind,
		ErrorMessage:   rec.ErrorMessage,
		TargetEntityID: rec.TargetEntityID,
	}
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.query.ListRecords(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeError(w, r, "failed to list records", err)
		return
	}
	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = toRecordResponse(rec)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) handleListFailed(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}
	filter := models.FailedRecordFilter{
		BatchID: r.URL.Query().Get("batch_id"),
		Limit:   limit,
	}
	for _, k := range pstrings.SplitList(r.URL.Query().Get("record_kind")) {
		filter.Kinds = append(filter.Kinds, models.RecordKind(k))
	}

	records, err := h.query.ListFailedRecords(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "failed to list failed records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

type eventResponse struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Timestamp   time.Time       `json:"timestamp"`
	Kind        string          `json:"event_kind"`
	BeforeState json.RawMessage `json:"before_state,omitempty"`
	AfterState  json.RawMessage `json:"after_state,omitempty"`
	Actor       string          `json:"actor"`
	Application string          `json:"application"`
	SessionID   string          `json:"session_id"`
	RequestID   string          `json:"request_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}
	kind := audit.EntityKind(chi.URLParam(r, "entityKind"))
	switch kind {
	case audit.EntityStagingRecord, audit.EntityBatchRun, audit.EntityRetention:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "entity kind must be one of staging_record, batch_run, retention_sweep"))
		return
	}

	events, err := h.query.AuditTrail(r.Context(), kind, chi.URLParam(r, "entityID"), limit)
	if err != nil {
		h.writeError(w, r, "failed to load audit trail", err)
		return
	}
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = eventResponse{
			ID:          e.ID.String(),
			Category:    string(e.Category),
			Timestamp:   e.Timestamp,
			Kind:        string(e.Kind),
			BeforeState: e.BeforeState,
			AfterState:  e.AfterState,
			Actor:       e.Actor,
			Application: e.Application,
			SessionID:   e.SessionID,
			RequestID:   e.RequestID,
			Reason:      e.Reason,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	days := h.retentionDays
	if raw := r.URL.Query().Get("retention_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "retention_days must be a positive integer"))
			return
		}
		days = n
	}
	result, err := h.sweeper.Sweep(r.Context(), h.auditContext(r), days)
	if err != nil {
		h.writeError(w, r, "retention sweep failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecover(w http.ResponseWriter, r *http.Request) {
	result, err := h.recoverer.Recover(r.Context(), h.auditContext(r))
	if err != nil {
		h.writeError(w, r, "stale run recovery failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

// writeError maps run errors onto domain codes, logs anything internal and writes
// the response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	var infraErr *service.BatchInfrastructureError
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		err = dErrors.Wrap(err, dErrors.CodeNotFound, "batch not found")
	case errors.Is(err, service.ErrBatchAlreadyRunning):
		err = dErrors.Wrap(err, dErrors.CodeConflict, "batch is already running")
	case errors.As(err, &infraErr):
		err = dErrors.Wrap(err, dErrors.CodeInternal, msg)
	case errors.Is(err, context.DeadlineExceeded):
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}

	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
