package service

import (
	"context"
	"time"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/audit"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// StagingStore persists staging records. Transitions are conditional: Claim only
// succeeds on pending records and Finish only on processing ones, failing with
// sentinel.ErrInvalidState otherwise.
type StagingStore interface {
	Insert(ctx context.Context, batchID string, recs []models.NewRecord, now time.Time) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.StagingRecord, error)
	ListPending(ctx context.Context, batchID string, afterID int64, limit int) ([]models.StagingRecord, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.StagingRecord, error)
	Claim(ctx context.Context, id int64, now time.Time) (*models.StagingRecord, error)
	Finish(ctx context.Context, outcome models.RecordOutcome, now time.Time) (*models.StagingRecord, error)
	ListFailed(ctx context.Context, filter models.FailedRecordFilter) ([]models.FailedRecord, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ResetStaleProcessing(ctx context.Context, claimedBefore time.Time) ([]int64, error)
}

// BatchStore persists batch runs. MarkRunning is the at-most-one-run guard.
type BatchStore interface {
	Create(ctx context.Context, b models.BatchRun) error
	Get(ctx context.Context, id string) (*models.BatchRun, error)
	List(ctx context.Context, limit int) ([]models.BatchRun, error)
	IncrementTotal(ctx context.Context, id string, n int) (*models.BatchRun, error)
	MarkRunning(ctx context.Context, id string, now time.Time) (*models.BatchRun, error)
	AddCounts(ctx context.Context, id string, delta models.Counts) error
	Finish(ctx context.Context, id string, status models.BatchStatus, lastError string, now time.Time) (*models.BatchRun, error)
	AbandonStale(ctx context.Context, startedBefore time.Time, reason string, now time.Time) ([]models.BatchRun, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CancelSignals carries operator cancel requests to the coordinator.
type CancelSignals interface {
	Request(ctx context.Context, batchID string, ttl time.Duration) error
	IsRequested(ctx context.Context, batchID string) (bool, error)
	Clear(ctx context.Context, batchID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type AuditReader interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// StoreTx provides a transactional boundary for staging mutations that touch both
// records and batch counters. Implementations may wrap a database transaction or,
// in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
