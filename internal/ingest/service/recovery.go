package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ingestmetrics "stagehand/internal/ingest/metrics"
	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/requestcontext"
)

// Recovery returns work stranded by a crashed run to a state a later Run picks up:
// records stuck in processing past their lease go back to pending, and batches
// running past the run timeout are failed so they can be re-run.
type Recovery struct {
	staging StagingStore
	batches BatchStore

	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *ingestmetrics.Metrics
	now          func() time.Time
	recordLease  time.Duration
	runTimeout   time.Duration
}

func NewRecovery(staging StagingStore, batches BatchStore, opts ...Option) *Recovery {
	cfg := newServiceConfig(opts)
	return &Recovery{
		staging:      staging,
		batches:      batches,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		now:          cfg.now,
		recordLease:  cfg.recordLease,
		runTimeout:   cfg.runTimeout,
	}
}

func (r *Recovery) Recover(ctx context.Context, ac requestcontext.AuditContext) (models.RecoveryResult, error) {
	now := r.now()
	var result models.RecoveryResult

	abandoned, err := r.batches.AbandonStale(ctx, now.Add(-r.runTimeout), AbandonedReason, now)
	if err != nil {
		return result, fmt.Errorf("abandon stale batches: %w", err)
	}
	for _, b := range abandoned {
		result.AbandonedBatches = append(result.AbandonedBatches, b.ID)
		before := b.Snapshot()
		before.Status, before.CompletedAt, before.LastError = models.BatchStatusRunning, nil, ""
		r.auditEmitter.batchEvent(ctx, ac, b.ID, audit.EventFailed, before, b.Snapshot(), AbandonedReason)
	}

	ids, err := r.staging.ResetStaleProcessing(ctx, now.Add(-r.recordLease))
	if err != nil {
		return result, fmt.Errorf("reset stale records: %w", err)
	}
	for _, id := range ids {
		r.auditEmitter.recordEvent(ctx, ac, id, audit.EventTransitioned,
			&models.StagingRecord{Status: models.RecordStatusProcessing},
			&models.StagingRecord{Status: models.RecordStatusPending},
			"lease expired")
	}
	result.ResetRecords = ids

	if r.metrics != nil {
		r.metrics.AddRecoveryResets(string(audit.EntityBatchRun), len(result.AbandonedBatches))
		r.metrics.AddRecoveryResets(string(audit.EntityStagingRecord), len(result.ResetRecords))
	}
	if len(ids) > 0 || len(abandoned) > 0 {
		r.logger.WarnContext(ctx, "recovered stale work",
			"reset_records", len(ids),
			"abandoned_batches", result.AbandonedBatches,
		)
	}
	return result, nil
}

// Start recovers every interval until ctx is cancelled.
func (r *Recovery) Start(ctx context.Context, ac requestcontext.AuditContext, interval time.Duration) error {
	return every(ctx, r.logger, "stale run recovery", interval, func(ctx context.Context) error {
		_, err := r.Recover(ctx, ac)
		return err
	})
}
