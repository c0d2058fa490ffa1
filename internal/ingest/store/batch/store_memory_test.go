package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
)

type fixedCounter map[string]int

func (c fixedCounter) CountByBatch(_ context.Context, batchID string) (int, error) {
	return c[batchID], nil
}

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) create(id string, total int) {
	s.Require().NoError(s.store.Create(s.ctx, models.BatchRun{
		ID:        id,
		Kind:      models.BatchKindCustomer,
		Status:    models.BatchStatusPending,
		CreatedAt: s.now,
	}))
	if total > 0 {
		_, err := s.store.IncrementTotal(s.ctx, id, total)
		s.Require().NoError(err)
	}
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicateID() {
	s.create("b1", 0)
	err := s.store.Create(s.ctx, models.BatchRun{ID: "b1"})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestMarkRunningIsAtomic() {
	s.create("b1", 2)

	b, err := s.store.MarkRunning(s.ctx, "b1", s.now)
	s.Require().NoError(err)
	s.Equal(models.BatchStatusRunning, b.Status)
	s.Equal(s.now, *b.StartedAt)

	_, err = s.store.MarkRunning(s.ctx, "b1", s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.MarkRunning(s.ctx, "missing", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestRerunClearsCompletion() {
	s.create("b1", 1)
	_, err := s.store.MarkRunning(s.ctx, "b1", s.now)
	s.Require().NoError(err)
	_, err = s.store.Finish(s.ctx, "b1", models.BatchStatusFailed, "boom", s.now)
	s.Require().NoError(err)

	b, err := s.store.MarkRunning(s.ctx, "b1", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Nil(b.CompletedAt)
	s.Empty(b.LastError)
	s.Equal(s.now.Add(time.Minute), *b.StartedAt)
}

func (s *InMemoryStoreSuite) TestRerunKeepsCountersCumulative() {
	s.create("b1", 3)
	_, err := s.store.MarkRunning(s.ctx, "b1", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddCounts(s.ctx, "b1", models.Counts{Processed: 1, Failed: 1}))
	_, err = s.store.Finish(s.ctx, "b1", models.BatchStatusCancelled, "", s.now)
	s.Require().NoError(err)

	b, err := s.store.MarkRunning(s.ctx, "b1", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(1, b.ProcessedRecords)
	s.Equal(1, b.FailedRecords)

	s.Require().NoError(s.store.AddCounts(s.ctx, "b1", models.Counts{Processed: 1}))
	b, err = s.store.Get(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(2, b.ProcessedRecords)
	s.Equal(b.TotalRecords, b.ProcessedRecords+b.FailedRecords+b.SkippedRecords)
}

func (s *InMemoryStoreSuite) TestAddCountsHonoursTotal() {
	s.create("b1", 2)

	err := s.store.AddCounts(s.ctx, "b1", models.Counts{Processed: 1})
	s.ErrorIs(err, sentinel.ErrInvalidState, "counters only move while running")

	_, err = s.store.MarkRunning(s.ctx, "b1", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddCounts(s.ctx, "b1", models.Counts{Processed: 1, Failed: 1}))

	err = s.store.AddCounts(s.ctx, "b1", models.Counts{Skipped: 1})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	b, err := s.store.Get(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(1, b.ProcessedRecords)
	s.Equal(1, b.FailedRecords)
	s.Equal(0, b.SkippedRecords)
}

func (s *InMemoryStoreSuite) TestIncrementTotalRejectedWhileRunning() {
	s.create("b1", 1)
	_, err := s.store.MarkRunning(s.ctx, "b1", s.now)
	s.Require().NoError(err)

	_, err = s.store.IncrementTotal(s.ctx, "b1", 1)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *InMemoryStoreSuite) TestAbandonStale() {
	s.create("old", 1)
	s.create("fresh", 1)
	_, err := s.store.MarkRunning(s.ctx, "old", s.now)
	s.Require().NoError(err)
	_, err = s.store.MarkRunning(s.ctx, "fresh", s.now.Add(5*time.Hour))
	s.Require().NoError(err)

	abandoned, err := s.store.AbandonStale(s.ctx, s.now.Add(time.Hour), "abandoned", s.now.Add(6*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(abandoned, 1)
	s.Equal("old", abandoned[0].ID)
	s.Equal(models.BatchStatusFailed, abandoned[0].Status)

	fresh, err := s.store.Get(s.ctx, "fresh")
	s.Require().NoError(err)
	s.Equal(models.BatchStatusRunning, fresh.Status)
}

func (s *InMemoryStoreSuite) TestDeleteTerminalOlderThan() {
	s.store = NewInMemory(WithRecordCounter(fixedCounter{"with-records": 1}))
	for _, id := range []string{"done", "with-records", "running", "never-run"} {
		s.create(id, 0)
	}
	for _, id := range []string{"done", "with-records", "running"} {
		_, err := s.store.MarkRunning(s.ctx, id, s.now)
		s.Require().NoError(err)
	}
	for _, id := range []string{"done", "with-records"} {
		_, err := s.store.Finish(s.ctx, id, models.BatchStatusCompleted, "", s.now)
		s.Require().NoError(err)
	}

	deleted, err := s.store.DeleteTerminalOlderThan(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	_, err = s.store.Get(s.ctx, "done")
	s.ErrorIs(err, sentinel.ErrNotFound)
	for _, id := range []string{"with-records", "running", "never-run"} {
		_, err := s.store.Get(s.ctx, id)
		s.NoError(err, id)
	}
}

func (s *InMemoryStoreSuite) TestListNewestFirst() {
	s.create("a", 0)
	s.now = s.now.Add(time.Minute)
	s.create("b", 0)

	list, err := s.store.List(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("b", list[0].ID)
}
