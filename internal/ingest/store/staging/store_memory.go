// Package staging persists staging records: raw inbound rows and their per-record
// lifecycle.
package staging

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
)

// InMemoryStore keeps staging records in a map keyed by id.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*models.StagingRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[int64]*models.StagingRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, batchID string, recs []models.NewRecord, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		s.nextID++
		s.records[s.nextID] = &models.StagingRecord{
			ID:        s.nextID,
			BatchID:   batchID,
			Kind:      r.Kind,
			RawFields: slices.Clone(r.RawFields),
			RawBlob:   slices.Clone(r.RawBlob),
			Status:    models.RecordStatusPending,
			CreatedAt: now,
		}
		ids = append(ids, s.nextID)
	}
	return ids, nil
}

func (s *InMemoryStore) Get(_ context.Context, id int64) (*models.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get staging record %d: %w", id, sentinel.ErrNotFound)
	}
	return clone(rec), nil
}

func (s *InMemoryStore) ListPending(_ context.Context, batchID string, afterID int64, limit int) ([]models.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StagingRecord
	for _, rec := range s.records {
		if rec.BatchID == batchID && rec.Status == models.RecordStatusPending && rec.ID > afterID {
			out = append(out, *clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListByBatch(_ context.Context, batchID string) ([]models.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StagingRecord
	for _, rec := range s.records {
		if rec.BatchID == batchID {
			out = append(out, *clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Claim moves a pending record to processing. A record in any other status yields
// sentinel.ErrInvalidState.
func (s *InMemoryStore) Claim(_ context.Context, id int64, now time.Time) (*models.StagingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("claim staging record %d: %w", id, sentinel.ErrNotFound)
	}
	if rec.Status != models.RecordStatusPending {
		return nil, fmt.Errorf("claim staging record %d in status %s: %w", id, rec.Status, sentinel.ErrInvalidState)
	}
	rec.Status = models.RecordStatusProcessing
	rec.ClaimedAt = &now
	return clone(rec), nil
}

// Finish writes the terminal status of a processing record.
func (s *InMemoryStore) Finish(_ context.Context, outcome models.RecordOutcome, now time.Time) (*models.StagingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[outcome.RecordID]
	if !ok {
		return nil, fmt.Errorf("finish staging record %d: %w", outcome.RecordID, sentinel.ErrNotFound)
	}
	if rec.Status != models.RecordStatusProcessing {
		return nil, fmt.Errorf("finish staging record %d in status %s: %w", rec.ID, rec.Status, sentinel.ErrInvalidState)
	}
	status, kind, msg, err := terminalColumns(outcome)
	if err != nil {
		return nil, err
	}
	rec.Status = status
	rec.ProcessedAt = &now
	rec.ErrorKind = kind
	rec.ErrorMessage = msg
	rec.TargetEntityID = outcome.TargetEntityID
	return clone(rec), nil
}

func (s *InMemoryStore) ListFailed(_ context.Context, filter models.FailedRecordFilter) ([]models.FailedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FailedRecord
	for _, rec := range s.records {
		if rec.Status != models.RecordStatusFailed {
			continue
		}
		if filter.BatchID != "" && rec.BatchID != filter.BatchID {
			continue
		}
		if len(filter.Kinds) > 0 && !slices.Contains(filter.Kinds, rec.Kind) {
			continue
		}
		out = append(out, failedRow(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.After(out[j].ProcessedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit := normalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.records {
		if rec.Status.IsTerminal() && rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// ResetStaleProcessing returns processing records claimed before claimedBefore to
// pending and reports their ids in ascending order.
func (s *InMemoryStore) ResetStaleProcessing(_ context.Context, claimedBefore time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, rec := range s.records {
		if rec.Status != models.RecordStatusProcessing {
			continue
		}
		if rec.ClaimedAt != nil && !rec.ClaimedAt.Before(claimedBefore) {
			continue
		}
		rec.Status = models.RecordStatusPending
		rec.ClaimedAt = nil
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// CountByBatch counts the records a batch still owns in any status.
func (s *InMemoryStore) CountByBatch(_ context.Context, batchID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if rec.BatchID == batchID {
			n++
		}
	}
	return n, nil
}

func clone(rec *models.StagingRecord) *models.StagingRecord {
	c := *rec
	c.RawFields = slices.Clone(rec.RawFields)
	c.RawBlob = slices.Clone(rec.RawBlob)
	return &c
}
