package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	ingestmetrics "stagehand/internal/ingest/metrics"
	"stagehand/internal/ingest/models"
	dErrors "stagehand/pkg/domain-errors"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/sentinel"
	"stagehand/pkg/requestcontext"
)

// RecordProcessor is the per-record step the coordinator drives.
type RecordProcessor interface {
	Process(ctx context.Context, ac requestcontext.AuditContext, rec models.StagingRecord) (models.RecordOutcome, error)
}

// SummaryRefresher rebuilds reporting rollups from a batch's loaded records.
type SummaryRefresher interface {
	Refresh(ctx context.Context, batchID string) (models.SummaryRefresh, error)
}

// Coordinator owns the batch lifecycle: it claims a batch, feeds its pending
// records to the processor in id order and finalizes the counters.
type Coordinator struct {
	batches   BatchStore
	staging   StagingStore
	processor RecordProcessor
	cancels   CancelSignals
	summaries SummaryRefresher

	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *ingestmetrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time
	pageSize     int
	cancelTTL    time.Duration
}

func NewCoordinator(batches BatchStore, staging StagingStore, processor RecordProcessor, cancels CancelSignals, opts ...Option) *Coordinator {
	cfg := newServiceConfig(opts)
	return &Coordinator{
		batches:      batches,
		staging:      staging,
		processor:    processor,
		cancels:      cancels,
		summaries:    cfg.summaries,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		tracer:       cfg.tracer,
		now:          cfg.now,
		pageSize:     cfg.pageSize,
		cancelTTL:    cfg.cancelTTL,
	}
}

// Run processes every pending record of a batch once. Only pending records are
// selected, so running a finished batch again is a no-op apart from the status
// bookkeeping. Concurrent invocations for the same batch get ErrBatchAlreadyRunning.
func (c *Coordinator) Run(ctx context.Context, ac requestcontext.AuditContext, batchID string) (models.BatchSummary, error) {
	ctx, span := c.tracer.Start(ctx, "ingest.run_batch", trace.WithAttributes(attribute.String("batch.id", batchID)))
	defer span.End()
	start := time.Now()

	before, err := c.batches.Get(ctx, batchID)
	if err != nil {
		return models.BatchSummary{}, c.startError(ctx, span, batchID, err)
	}
	batch, err := c.batches.MarkRunning(ctx, batchID, c.now())
	if err != nil {
		return models.BatchSummary{}, c.startError(ctx, span, batchID, err)
	}
	c.clearCancel(ctx, batchID)
	c.auditEmitter.batchEvent(ctx, ac, batchID, audit.EventTransitioned, before.Snapshot(), batch.Snapshot(), "run started")
	if c.metrics != nil {
		c.metrics.IncrementBatchRunsStarted()
	}
	c.logger.InfoContext(ctx, "batch run started",
		"batch_id", batchID,
		"total_records", batch.TotalRecords,
		"remaining", batch.Remaining(),
	)

	summary := models.BatchSummary{BatchID: batchID}
	var counts models.Counts
	status, lastErr, reason := models.BatchStatusCompleted, "", "run finished"

	for rec, err := range c.pending(ctx, batchID) {
		if err != nil {
			if ctx.Err() != nil {
				status, reason = models.BatchStatusCancelled, "context cancelled"
				break
			}
			status, lastErr, reason = models.BatchStatusFailed, err.Error(), "staging store unavailable"
			break
		}
		if cancelled, why := c.cancelled(ctx, batchID); cancelled {
			status, reason = models.BatchStatusCancelled, why
			break
		}

		outcome, err := c.processor.Process(ctx, ac, rec)
		if err != nil {
			status, lastErr, reason = models.BatchStatusFailed, err.Error(), "staging store unavailable"
			break
		}

		var delta models.Counts
		delta.Add(outcome)
		counts.Add(outcome)
		if err := c.batches.AddCounts(context.WithoutCancel(ctx), batchID, delta); err != nil {
			summary = summarize(summary, counts, models.BatchStatusRunning, 0)
			return summary, c.infraError(ctx, span, batchID, "add counts", err)
		}
	}

	final, err := c.batches.Finish(context.WithoutCancel(ctx), batchID, status, lastErr, c.now())
	if err != nil {
		summary = summarize(summary, counts, models.BatchStatusRunning, 0)
		return summary, c.infraError(ctx, span, batchID, "finish", err)
	}
	c.clearCancel(context.WithoutCancel(ctx), batchID)
	if final.Status == models.BatchStatusCompleted && counts.Processed > 0 {
		c.refreshSummaries(ctx, batch)
	}

	summary = summarize(summary, counts, final.Status, final.DurationSeconds())
	kind := audit.EventCompleted
	switch final.Status {
	case models.BatchStatusFailed:
		kind = audit.EventFailed
		span.SetStatus(codes.Error, lastErr)
	case models.BatchStatusCancelled:
		kind = audit.EventTransitioned
	}
	c.auditEmitter.batchEvent(ctx, ac, batchID, kind, batch.Snapshot(), summary, reason)
	if c.metrics != nil {
		c.metrics.ObserveBatchRun(string(final.Status), start)
	}
	span.SetAttributes(
		attribute.String("batch.status", string(final.Status)),
		attribute.Int("batch.processed", counts.Processed),
		attribute.Int("batch.failed", counts.Failed),
		attribute.Int("batch.skipped", counts.Skipped),
	)
	c.logger.InfoContext(ctx, "batch run finished",
		"batch_id", batchID,
		"status", string(final.Status),
		"processed", counts.Processed,
		"failed", counts.Failed,
		"skipped", counts.Skipped,
		"duration_seconds", summary.DurationSeconds,
	)
	return summary, nil
}

// RunMany runs distinct batches concurrently, at most concurrency at a time. Each
// batch still runs its records sequentially. Per-batch errors are joined.
func (c *Coordinator) RunMany(ctx context.Context, ac requestcontext.AuditContext, batchIDs []string, concurrency int) (map[string]models.BatchSummary, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]models.BatchSummary, len(batchIDs))
	errs := make([]error, len(batchIDs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, id := range batchIDs {
		g.Go(func() error {
			summary, err := c.Run(ctx, ac, id)
			results[i] = summary
			if err != nil {
				errs[i] = fmt.Errorf("run batch %s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]models.BatchSummary, len(batchIDs))
	for i, id := range batchIDs {
		if errs[i] == nil {
			out[id] = results[i]
		}
	}
	return out, errors.Join(errs...)
}

// Cancel asks a running batch to stop before its next record.
func (c *Coordinator) Cancel(ctx context.Context, ac requestcontext.AuditContext, batchID string) error {
	batch, err := c.batches.Get(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load batch")
	}
	if batch.Status != models.BatchStatusRunning {
		return dErrors.New(dErrors.CodeConflict, "batch is not running")
	}
	if err := c.cancels.Request(ctx, batchID, c.cancelTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to request cancellation")
	}
	c.auditEmitter.batchEvent(ctx, ac, batchID, audit.EventTransitioned, batch.Snapshot(), batch.Snapshot(), "cancel requested")
	return nil
}

// pending yields the batch's pending records in ascending id order, one bounded
// page at a time. The cursor is the last id handed out, so a page boundary never
// re-reads or skips a record.
func (c *Coordinator) pending(ctx context.Context, batchID string) iter.Seq2[models.StagingRecord, error] {
	return func(yield func(models.StagingRecord, error) bool) {
		var afterID int64
		for {
			page, err := c.staging.ListPending(ctx, batchID, afterID, c.pageSize)
			if err != nil {
				yield(models.StagingRecord{}, fmt.Errorf("list pending records: %w", err))
				return
			}
			for _, rec := range page {
				afterID = rec.ID
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < c.pageSize {
				return
			}
		}
	}
}

func (c *Coordinator) cancelled(ctx context.Context, batchID string) (bool, string) {
	if ctx.Err() != nil {
		return true, "context cancelled"
	}
	if c.cancels == nil {
		return false, ""
	}
	requested, err := c.cancels.IsRequested(ctx, batchID)
	if err != nil {
		c.logger.WarnContext(ctx, "cancel signal check failed",
			"batch_id", batchID,
			"error", err,
		)
		return false, ""
	}
	if requested {
		return true, "cancelled by operator"
	}
	return false, ""
}

func (c *Coordinator) clearCancel(ctx context.Context, batchID string) {
	if c.cancels == nil {
		return
	}
	if err := c.cancels.Clear(ctx, batchID); err != nil {
		c.logger.WarnContext(ctx, "cancel signal clear failed",
			"batch_id", batchID,
			"error", err,
		)
	}
}

// refreshSummaries runs after a completed order or full sync run. A refresh
// failure is logged and leaves the run's outcome alone; a later refresh recomputes.
func (c *Coordinator) refreshSummaries(ctx context.Context, batch *models.BatchRun) {
	if c.summaries == nil || (batch.Kind != models.BatchKindOrder && batch.Kind != models.BatchKindFullSync) {
		return
	}
	refreshed, err := c.summaries.Refresh(ctx, batch.ID)
	if err != nil {
		c.logger.WarnContext(ctx, "summary refresh failed",
			"batch_id", batch.ID,
			"error", err,
		)
		return
	}
	c.logger.InfoContext(ctx, "summaries refreshed",
		"batch_id", batch.ID,
		"customers", refreshed.Customers,
		"days", len(refreshed.Days),
	)
}

func (c *Coordinator) startError(ctx context.Context, span trace.Span, batchID string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	case errors.Is(err, sentinel.ErrInvalidState):
		return fmt.Errorf("%w: %s", ErrBatchAlreadyRunning, batchID)
	}
	return c.infraError(ctx, span, batchID, "start", err)
}

func (c *Coordinator) infraError(ctx context.Context, span trace.Span, batchID, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	c.logger.ErrorContext(ctx, "batch run infrastructure failure",
		"batch_id", batchID,
		"op", op,
		"error", err,
	)
	return &BatchInfrastructureError{BatchID: batchID, Op: op, Err: err}
}

func summarize(s models.BatchSummary, counts models.Counts, status models.BatchStatus, duration float64) models.BatchSummary {
	s.Status = status
	s.Processed = counts.Processed
	s.Failed = counts.Failed
	s.Skipped = counts.Skipped
	s.DurationSeconds = duration
	return s
}
