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

// DefaultRetentionDays is how long terminal staging data is kept.
const DefaultRetentionDays = 30

// Sweeper purges terminal staging records and finished batch runs past retention.
// Pending and processing records and running batches are never touched.
type Sweeper struct {
	staging StagingStore
	batches BatchStore

	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *ingestmetrics.Metrics
	now          func() time.Time
}

func NewSweeper(staging StagingStore, batches BatchStore, opts ...Option) *Sweeper {
	cfg := newServiceConfig(opts)
	return &Sweeper{
		staging:      staging,
		batches:      batches,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		now:          cfg.now,
	}
}

// Sweep deletes completed and failed records created more than retentionDays ago,
// then finished batches started before the same cutoff that no longer own records.
// Running it twice deletes nothing the second time.
func (s *Sweeper) Sweep(ctx context.Context, ac requestcontext.AuditContext, retentionDays int) (models.SweepResult, error) {
	if retentionDays <= 0 {
		return models.SweepResult{}, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	var result models.SweepResult
	var err error
	result.DeletedRecords, err = s.staging.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("sweep staging records: %w", err)
	}
	result.DeletedBatches, err = s.batches.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("sweep batch runs: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AddRetentionDeleted(string(audit.EntityStagingRecord), result.DeletedRecords)
		s.metrics.AddRetentionDeleted(string(audit.EntityBatchRun), result.DeletedBatches)
	}
	s.auditEmitter.emit(ctx, ac, audit.Event{
		EntityKind: audit.EntityRetention,
		EntityID:   cutoff.UTC().Format(time.RFC3339),
		Kind:       audit.EventCompleted,
		AfterState: audit.Snapshot(result),
		Reason:     fmt.Sprintf("retention %d days", retentionDays),
	})
	return result, nil
}

// Start sweeps every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, ac requestcontext.AuditContext, interval time.Duration, retentionDays int) error {
	return every(ctx, s.logger, "retention sweep", interval, func(ctx context.Context) error {
		_, err := s.Sweep(ctx, ac, retentionDays)
		return err
	})
}
