package service

import (
	"context"
	"time"

	"stagehand/internal/ingest/models"
	dErrors "stagehand/pkg/domain-errors"
	"stagehand/pkg/platform/audit"
)

// Query serves the read-only operator views. It never mutates state.
type Query struct {
	batches     BatchStore
	staging     StagingStore
	auditReader AuditReader
	now         func() time.Time
}

func NewQuery(batches BatchStore, staging StagingStore, opts ...Option) *Query {
	cfg := newServiceConfig(opts)
	return &Query{
		batches:     batches,
		staging:     staging,
		auditReader: cfg.auditReader,
		now:         cfg.now,
	}
}

// GetBatchReport returns a batch with its success rate and, while running, elapsed time.
func (q *Query) GetBatchReport(ctx context.Context, batchID string) (*models.BatchReport, error) {
	batch, err := q.batches.Get(ctx, batchID)
	if err != nil {
		return nil, wrapBatchErr(err)
	}
	report := models.NewBatchReport(*batch, q.now())
	return &report, nil
}

func (q *Query) ListBatches(ctx context.Context, limit int) ([]models.BatchReport, error) {
	batches, err := q.batches.List(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batches")
	}
	now := q.now()
	out := make([]models.BatchReport, len(batches))
	for i, b := range batches {
		out[i] = models.NewBatchReport(b, now)
	}
	return out, nil
}

// ListFailedRecords lists failed records across kinds, most recently processed first.
func (q *Query) ListFailedRecords(ctx context.Context, filter models.FailedRecordFilter) ([]models.FailedRecord, error) {
	for _, k := range filter.Kinds {
		if !k.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "record_kind must be one of customer, order, product")
		}
	}
	if filter.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	records, err := q.staging.ListFailed(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list failed records")
	}
	return records, nil
}

// ListRecords returns every staging record of a batch in id order.
func (q *Query) ListRecords(ctx context.Context, batchID string) ([]models.StagingRecord, error) {
	if _, err := q.batches.Get(ctx, batchID); err != nil {
		return nil, wrapBatchErr(err)
	}
	records, err := q.staging.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

// AuditTrail lists the audit events of one entity, newest first.
func (q *Query) AuditTrail(ctx context.Context, kind audit.EntityKind, entityID string, limit int) ([]audit.Event, error) {
	if q.auditReader == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit trail is not available")
	}
	events, err := q.auditReader.List(ctx, audit.Filter{EntityKind: kind, EntityID: entityID, Limit: limit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return events, nil
}
