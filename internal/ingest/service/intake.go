package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	ingestmetrics "stagehand/internal/ingest/metrics"
	"stagehand/internal/ingest/models"
	dErrors "stagehand/pkg/domain-errors"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/sentinel"
	"stagehand/pkg/requestcontext"
)

const (
	maxBatchIDLength    = 128
	maxRecordsPerStage  = 50000
	maxSourceNameLength = 128
)

// Intake registers batches and lands raw records in staging as pending.
type Intake struct {
	batches BatchStore
	staging StagingStore
	tx      StoreTx

	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *ingestmetrics.Metrics
	now          func() time.Time
}

func NewIntake(batches BatchStore, staging StagingStore, opts ...Option) *Intake {
	cfg := newServiceConfig(opts)
	return &Intake{
		batches:      batches,
		staging:      staging,
		tx:           cfg.tx,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		now:          cfg.now,
	}
}

// CreateBatch registers a pending batch. An empty id is replaced by a generated one.
func (s *Intake) CreateBatch(ctx context.Context, ac requestcontext.AuditContext, req models.NewBatch) (*models.BatchRun, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.SourceSystem = strings.TrimSpace(req.SourceSystem)
	if len(req.ID) > maxBatchIDLength {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("batch_id must be %d characters or less", maxBatchIDLength))
	}
	if len(req.SourceSystem) > maxSourceNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("source_system must be %d characters or less", maxSourceNameLength))
	}
	if req.Kind == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "batch_kind is required")
	}
	if !req.Kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "batch_kind must be one of customer, order, product, full_sync")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	batch := models.BatchRun{
		ID:           req.ID,
		Kind:         req.Kind,
		SourceSystem: req.SourceSystem,
		Status:       models.BatchStatusPending,
		CreatedAt:    s.now(),
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "batch id already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create batch")
	}
	s.auditEmitter.batchEvent(ctx, ac, batch.ID, audit.EventCreated, nil, batch.Snapshot(), "batch registered")
	return &batch, nil
}

// StageRecords bulk-loads records as pending and raises the batch total by the
// same amount in one transaction. Records cannot be added while the batch runs.
func (s *Intake) StageRecords(ctx context.Context, ac requestcontext.AuditContext, batchID string, recs []models.NewRecord) ([]int64, error) {
	if len(recs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "records are required")
	}
	if len(recs) > maxRecordsPerStage {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d records may be staged at once", maxRecordsPerStage))
	}

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return nil, wrapBatchErr(err)
	}
	for i := range recs {
		if !batch.Kind.Accepts(recs[i].Kind) {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("record %d: kind %q is not accepted by a %s batch", i, recs[i].Kind, batch.Kind))
		}
		if recs[i].RawBlob == nil {
			recs[i].RawBlob = models.RawBlobFor(recs[i].RawFields)
		}
	}

	now := s.now()
	var ids []int64
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.batches.IncrementTotal(txCtx, batchID, len(recs)); err != nil {
			return err
		}
		ids, err = s.staging.Insert(txCtx, batchID, recs, now)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "batch is running")
		}
		return nil, wrapBatchErr(err)
	}

	for i, id := range ids {
		after := models.StagingRecord{ID: id, BatchID: batchID, Kind: recs[i].Kind, Status: models.RecordStatusPending, CreatedAt: now}
		s.auditEmitter.recordEvent(ctx, ac, id, audit.EventCreated, nil, &after, "staged")
		if s.metrics != nil {
			s.metrics.AddRecordsStaged(string(recs[i].Kind), 1)
		}
	}
	s.logger.InfoContext(ctx, "records staged",
		"batch_id", batchID,
		"count", len(ids),
	)
	return ids, nil
}

func wrapBatchErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "batch not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access batch")
}
