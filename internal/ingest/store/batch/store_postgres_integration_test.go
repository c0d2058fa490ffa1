//go:build integration

package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/store/batch"
	"stagehand/internal/ingest/store/staging"
	"stagehand/pkg/platform/sentinel"
	"stagehand/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *batch.PostgresStore
	staging  *staging.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = batch.NewPostgres(s.postgres.DB)
	s.staging = staging.NewPostgres(s.postgres.DB)
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "batch_runs", "staging_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) create(id string, total int) {
	s.Require().NoError(s.store.Create(context.Background(), models.BatchRun{
		ID: id, Kind: models.BatchKindCustomer, SourceSystem: "crm",
		Status: models.BatchStatusPending, TotalRecords: total, CreatedAt: s.now,
	}))
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	s.create("b1", 3)

	got, err := s.store.Get(ctx, "b1")
	s.Require().NoError(err)
	s.Equal(models.BatchKindCustomer, got.Kind)
	s.Equal(models.BatchStatusPending, got.Status)
	s.Equal(3, got.TotalRecords)
	s.Nil(got.StartedAt)

	err = s.store.Create(ctx, models.BatchRun{ID: "b1", Kind: models.BatchKindOrder, Status: models.BatchStatusPending, CreatedAt: s.now})
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Get(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentMarkRunning verifies the conditional UPDATE lets exactly one
// caller start a batch.
func (s *PostgresStoreSuite) TestConcurrentMarkRunning() {
	ctx := context.Background()
	s.create("b1", 1)

	const goroutines = 20
	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.MarkRunning(ctx, "b1", s.now)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(goroutines-1), lost.Load())
}

func (s *PostgresStoreSuite) TestCountsNeverExceedTotal() {
	ctx := context.Background()
	s.create("b1", 2)
	_, err := s.store.MarkRunning(ctx, "b1", s.now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.AddCounts(ctx, "b1", models.Counts{Processed: 1, Failed: 1}))
	err = s.store.AddCounts(ctx, "b1", models.Counts{Skipped: 1})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.Get(ctx, "b1")
	s.Require().NoError(err)
	s.Equal(1, got.ProcessedRecords)
	s.Equal(1, got.FailedRecords)
	s.Equal(0, got.SkippedRecords)
}

func (s *PostgresStoreSuite) TestFinishAndRerun() {
	ctx := context.Background()
	s.create("b1", 0)
	_, err := s.store.MarkRunning(ctx, "b1", s.now)
	s.Require().NoError(err)

	done, err := s.store.Finish(ctx, "b1", models.BatchStatusFailed, "staging unavailable", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(models.BatchStatusFailed, done.Status)
	s.Equal("staging unavailable", done.LastError)
	s.InDelta(60, done.DurationSeconds(), 0.001)

	_, err = s.store.Finish(ctx, "b1", models.BatchStatusCompleted, "", s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	again, err := s.store.MarkRunning(ctx, "b1", s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Nil(again.CompletedAt)
	s.Empty(again.LastError)
}

func (s *PostgresStoreSuite) TestIncrementTotalRejectsRunningBatch() {
	ctx := context.Background()
	s.create("b1", 1)

	got, err := s.store.IncrementTotal(ctx, "b1", 4)
	s.Require().NoError(err)
	s.Equal(5, got.TotalRecords)

	_, err = s.store.MarkRunning(ctx, "b1", s.now)
	s.Require().NoError(err)
	_, err = s.store.IncrementTotal(ctx, "b1", 1)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestAbandonStale() {
	ctx := context.Background()
	s.create("old", 0)
	s.create("fresh", 0)
	_, err := s.store.MarkRunning(ctx, "old", s.now.Add(-7*time.Hour))
	s.Require().NoError(err)
	_, err = s.store.MarkRunning(ctx, "fresh", s.now.Add(-time.Hour))
	s.Require().NoError(err)

	abandoned, err := s.store.AbandonStale(ctx, s.now.Add(-6*time.Hour), "abandoned", s.now)
	s.Require().NoError(err)
	s.Require().Len(abandoned, 1)
	s.Equal("old", abandoned[0].ID)
	s.Equal(models.BatchStatusFailed, abandoned[0].Status)

	fresh, err := s.store.Get(ctx, "fresh")
	s.Require().NoError(err)
	s.Equal(models.BatchStatusRunning, fresh.Status)
}

func (s *PostgresStoreSuite) TestDeleteTerminalOnlyWithoutRecords() {
	ctx := context.Background()
	old := s.now.Add(-40 * 24 * time.Hour)
	for _, id := range []string{"empty", "owner"} {
		s.create(id, 0)
		_, err := s.store.MarkRunning(ctx, id, old)
		s.Require().NoError(err)
		_, err = s.store.Finish(ctx, id, models.BatchStatusCompleted, "", old)
		s.Require().NoError(err)
	}
	_, err := s.staging.Insert(ctx, "owner", []models.NewRecord{{
		Kind: models.RecordKindCustomer, RawFields: models.Fields{{Name: "email", Value: "a@example.com"}},
	}}, s.now)
	s.Require().NoError(err)

	n, err := s.store.DeleteTerminalOlderThan(ctx, s.now.Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.store.Get(ctx, "empty")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(ctx, "owner")
	s.NoError(err)
}

func (s *PostgresStoreSuite) TestListNewestFirst() {
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.Create(ctx, models.BatchRun{
			ID: id, Kind: models.BatchKindOrder, Status: models.BatchStatusPending,
			CreatedAt: s.now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.store.List(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("c", got[0].ID)
	s.Equal("b", got[1].ID)
}
