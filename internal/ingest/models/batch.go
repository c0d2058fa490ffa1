package models

import (
	"fmt"
	"strings"
	"time"
)

// BatchKind is what a batch imports.
type BatchKind string

const (
	BatchKindCustomer BatchKind = "customer"
	BatchKindOrder    BatchKind = "order"
	BatchKindProduct  BatchKind = "product"
	BatchKindFullSync BatchKind = "full_sync"
)

func (k BatchKind) IsValid() bool {
	switch k {
	case BatchKindCustomer, BatchKindOrder, BatchKindProduct, BatchKindFullSync:
		return true
	}
	return false
}

// Accepts reports whether records of kind may be staged into a batch of this kind.
// A full sync accepts every record kind.
func (k BatchKind) Accepts(kind RecordKind) bool {
	if k == BatchKindFullSync {
		return kind.IsValid()
	}
	return string(k) == string(kind)
}

func ParseBatchKind(s string) (BatchKind, error) {
	k := BatchKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown batch kind %q", s)
	}
	return k, nil
}

// BatchStatus is a batch run's lifecycle position. Pending is the registered,
// never-run state; completed, failed and cancelled are terminal but a new Run may
// resume a terminal batch.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusCancelled
}

// BatchRun groups staging records under a shared lifecycle and counters.
type BatchRun struct {
	ID               string
	Kind             BatchKind
	SourceSystem     string
	Status           BatchStatus
	TotalRecords     int
	ProcessedRecords int
	FailedRecords    int
	SkippedRecords   int
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	LastError        string
}

// DurationSeconds is completedAt - startedAt, or zero while not finished.
func (b BatchRun) DurationSeconds() float64 {
	if b.StartedAt == nil || b.CompletedAt == nil {
		return 0
	}
	return b.CompletedAt.Sub(*b.StartedAt).Seconds()
}

// Remaining is the number of records not yet accounted for by any counter.
func (b BatchRun) Remaining() int {
	return b.TotalRecords - b.ProcessedRecords - b.FailedRecords - b.SkippedRecords
}

// BatchSnapshot is serialized into audit before/after states.
type BatchSnapshot struct {
	Status           BatchStatus `json:"status"`
	TotalRecords     int         `json:"total_records"`
	ProcessedRecords int         `json:"processed_records"`
	FailedRecords    int         `json:"failed_records"`
	SkippedRecords   int         `json:"skipped_records"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	LastError        string      `json:"last_error,omitempty"`
}

func (b BatchRun) Snapshot() BatchSnapshot {
	return BatchSnapshot{
		Status:           b.Status,
		TotalRecords:     b.TotalRecords,
		ProcessedRecords: b.ProcessedRecords,
		FailedRecords:    b.FailedRecords,
		SkippedRecords:   b.SkippedRecords,
		StartedAt:        b.StartedAt,
		CompletedAt:      b.CompletedAt,
		LastError:        b.LastError,
	}
}

// NewBatch registers a batch before its records are staged.
type NewBatch struct {
	ID           string
	Kind         BatchKind
	SourceSystem string
}

// Counts is a delta applied to a running batch's counters.
type Counts struct {
	Processed int
	Failed    int
	Skipped   int
}

// Add accumulates the counter matching an outcome.
func (c *Counts) Add(o RecordOutcome) {
	switch o.Status {
	case OutcomeCompleted:
		c.Processed++
	case OutcomeFailed:
		c.Failed++
	case OutcomeSkipped:
		c.Skipped++
	}
}

func (c Counts) IsZero() bool {
	return c.Processed == 0 && c.Failed == 0 && c.Skipped == 0
}

// BatchSummary is what one Run invocation did.
type BatchSummary struct {
	BatchID         string      `json:"batch_id"`
	Status          BatchStatus `json:"status"`
	Processed       int         `json:"processed"`
	Failed          int         `json:"failed"`
	Skipped         int         `json:"skipped"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// BatchReport is the operator view of a batch.
type BatchReport struct {
	ID                 string      `json:"batch_id"`
	Kind               BatchKind   `json:"batch_kind"`
	SourceSystem       string      `json:"source_system"`
	Status             BatchStatus `json:"status"`
	TotalRecords       int         `json:"total_records"`
	ProcessedRecords   int         `json:"processed_records"`
	FailedRecords      int         `json:"failed_records"`
	SkippedRecords     int         `json:"skipped_records"`
	CreatedAt          time.Time   `json:"created_at"`
	StartedAt          *time.Time  `json:"started_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	DurationSeconds    float64     `json:"duration_seconds"`
	SuccessRatePercent float64     `json:"success_rate_percent"`
	ElapsedSeconds     *float64    `json:"elapsed_seconds,omitempty"`
	LastError          string      `json:"last_error,omitempty"`
}

// NewBatchReport derives the operator view at now.
func NewBatchReport(b BatchRun, now time.Time) BatchReport {
	r := BatchReport{
		ID:               b.ID,
		Kind:             b.Kind,
		SourceSystem:     b.SourceSystem,
		Status:           b.Status,
		TotalRecords:     b.TotalRecords,
		ProcessedRecords: b.ProcessedRecords,
		FailedRecords:    b.FailedRecords,
		SkippedRecords:   b.SkippedRecords,
		CreatedAt:        b.CreatedAt,
		StartedAt:        b.StartedAt,
		CompletedAt:      b.CompletedAt,
		DurationSeconds:  b.DurationSeconds(),
		LastError:        b.LastError,
	}
	if b.TotalRecords > 0 {
		r.SuccessRatePercent = float64(b.ProcessedRecords) / float64(b.TotalRecords) * 100
	}
	if b.Status == BatchStatusRunning && b.StartedAt != nil {
		elapsed := now.Sub(*b.StartedAt).Seconds()
		r.ElapsedSeconds = &elapsed
	}
	return r
}

// SweepResult reports what a retention sweep deleted.
type SweepResult struct {
	DeletedRecords int64 `json:"deleted_records"`
	DeletedBatches int64 `json:"deleted_batches"`
}

// RecoveryResult reports what a stale-run recovery pass reset.
type RecoveryResult struct {
	ResetRecords     []int64  `json:"reset_records"`
	AbandonedBatches []string `json:"abandoned_batches"`
}

// SummaryRefresh reports which reporting rollups a batch refreshed.
type SummaryRefresh struct {
	BatchID   string      `json:"batch_id"`
	Customers int         `json:"customers"`
	Days      []time.Time `json:"days"`
}
