// Package batch persists batch runs and their counters.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
)

// InMemoryStore keeps batch runs in a map keyed by id.
type InMemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*models.BatchRun
	records RecordCounter
}

type MemoryOption func(*InMemoryStore)

// WithRecordCounter lets retention skip batches that still own staging records, the
// way the Postgres store does with a NOT EXISTS over staging_records.
func WithRecordCounter(c RecordCounter) MemoryOption {
	return func(s *InMemoryStore) {
		s.records = c
	}
}

func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{batches: make(map[string]*models.BatchRun)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Create(_ context.Context, b models.BatchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[b.ID]; exists {
		return fmt.Errorf("create batch run %s: %w", b.ID, sentinel.ErrConflict)
	}
	c := b
	s.batches[b.ID] = &c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("get batch run %s: %w", id, sentinel.ErrNotFound)
	}
	c := *b
	return &c, nil
}

func (s *InMemoryStore) List(_ context.Context, limit int) ([]models.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BatchRun, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IncrementTotal adds n staged records to a batch that is not running.
func (s *InMemoryStore) IncrementTotal(_ context.Context, id string, n int) (*models.BatchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("increment batch run %s total: %w", id, sentinel.ErrNotFound)
	}
	if b.Status == models.BatchStatusRunning {
		return nil, fmt.Errorf("increment batch run %s total while running: %w", id, sentinel.ErrInvalidState)
	}
	b.TotalRecords += n
	c := *b
	return &c, nil
}

// MarkRunning atomically moves a non-running batch to running. A batch that is
// already running yields sentinel.ErrInvalidState.
func (s *InMemoryStore) MarkRunning(_ context.Context, id string, now time.Time) (*models.BatchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("start batch run %s: %w", id, sentinel.ErrNotFound)
	}
	if b.Status == models.BatchStatusRunning {
		return nil, fmt.Errorf("start batch run %s: %w", id, sentinel.ErrInvalidState)
	}
	b.Status = models.BatchStatusRunning
	b.StartedAt = &now
	b.CompletedAt = nil
	b.LastError = ""
	c := *b
	return &c, nil
}

func (s *InMemoryStore) AddCounts(_ context.Context, id string, delta models.Counts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return fmt.Errorf("add batch run %s counts: %w", id, sentinel.ErrNotFound)
	}
	if b.Status != models.BatchStatusRunning {
		return fmt.Errorf("add batch run %s counts in status %s: %w", id, b.Status, sentinel.ErrInvalidState)
	}
	if b.ProcessedRecords+b.FailedRecords+b.SkippedRecords+delta.Processed+delta.Failed+delta.Skipped > b.TotalRecords {
		return fmt.Errorf("add batch run %s counts beyond total: %w", id, sentinel.ErrInvalidState)
	}
	b.ProcessedRecords += delta.Processed
	b.FailedRecords += delta.Failed
	b.SkippedRecords += delta.Skipped
	return nil
}

// Finish moves a running batch to a terminal status.
func (s *InMemoryStore) Finish(_ context.Context, id string, status models.BatchStatus, lastError string, now time.Time) (*models.BatchRun, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("finish batch run %s with non-terminal status %s", id, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("finish batch run %s: %w", id, sentinel.ErrNotFound)
	}
	if b.Status != models.BatchStatusRunning {
		return nil, fmt.Errorf("finish batch run %s in status %s: %w", id, b.Status, sentinel.ErrInvalidState)
	}
	b.Status = status
	b.CompletedAt = &now
	b.LastError = lastError
	c := *b
	return &c, nil
}

// AbandonStale fails running batches started before startedBefore.
func (s *InMemoryStore) AbandonStale(_ context.Context, startedBefore time.Time, reason string, now time.Time) ([]models.BatchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BatchRun
	for _, b := range s.batches {
		if b.Status != models.BatchStatusRunning || b.StartedAt == nil || !b.StartedAt.Before(startedBefore) {
			continue
		}
		b.Status = models.BatchStatusFailed
		b.CompletedAt = &now
		b.LastError = reason
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteTerminalOlderThan removes finished batches started before cutoff. Batches
// that still own any staging record are kept.
func (s *InMemoryStore) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, b := range s.batches {
		if !b.Status.IsTerminal() || b.StartedAt == nil || !b.StartedAt.Before(cutoff) {
			continue
		}
		if s.records != nil {
			n, err := s.records.CountByBatch(ctx, id)
			if err != nil {
				return deleted, fmt.Errorf("delete batch run %s: %w", id, err)
			}
			if n > 0 {
				continue
			}
		}
		delete(s.batches, id)
		deleted++
	}
	return deleted, nil
}
