package staging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/sentinel"
)

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

func (s *InMemoryStoreSuite) insert(batchID string, n int) []int64 {
	recs := make([]models.NewRecord, n)
	for i := range recs {
		recs[i] = models.NewRecord{
			Kind:      models.RecordKindCustomer,
			RawFields: models.Fields{{Name: "email", Value: "user@example.com"}},
		}
	}
	ids, err := s.store.Insert(s.ctx, batchID, recs, s.now)
	s.Require().NoError(err)
	return ids
}

func (s *InMemoryStoreSuite) TestListPendingPagesInIDOrder() {
	ids := s.insert("b1", 5)
	s.insert("b2", 2)

	page, err := s.store.ListPending(s.ctx, "b1", 0, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(ids[0], page[0].ID)
	s.Equal(ids[1], page[1].ID)

	page, err = s.store.ListPending(s.ctx, "b1", page[1].ID, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Equal(ids[4], page[2].ID)
}

func (s *InMemoryStoreSuite) TestClaimIsConditional() {
	ids := s.insert("b1", 1)

	rec, err := s.store.Claim(s.ctx, ids[0], s.now)
	s.Require().NoError(err)
	s.Equal(models.RecordStatusProcessing, rec.Status)
	s.Require().NotNil(rec.ClaimedAt)

	_, err = s.store.Claim(s.ctx, ids[0], s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.Claim(s.ctx, 999, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFinish() {
	s.Run("completed sets target id and processedAt", func() {
		ids := s.insert("b1", 1)
		_, err := s.store.Claim(s.ctx, ids[0], s.now)
		s.Require().NoError(err)

		rec, err := s.store.Finish(s.ctx, models.Completed(ids[0], 42), s.now)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusCompleted, rec.Status)
		s.Equal(int64(42), *rec.TargetEntityID)
		s.Nil(rec.ErrorMessage)
		s.Require().NotNil(rec.ProcessedAt)
	})

	s.Run("failed stores message verbatim", func() {
		ids := s.insert("b1", 1)
		_, err := s.store.Claim(s.ctx, ids[0], s.now)
		s.Require().NoError(err)

		rec, err := s.store.Finish(s.ctx, models.Failed(ids[0], models.ErrorKindValidation, "email is required"), s.now)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusFailed, rec.Status)
		s.Equal("email is required", *rec.ErrorMessage)
		s.Equal(models.ErrorKindValidation, rec.ErrorKind)
	})

	s.Run("terminal records are immutable", func() {
		ids := s.insert("b1", 1)
		_, err := s.store.Claim(s.ctx, ids[0], s.now)
		s.Require().NoError(err)
		_, err = s.store.Finish(s.ctx, models.Completed(ids[0], 1), s.now)
		s.Require().NoError(err)

		_, err = s.store.Finish(s.ctx, models.Failed(ids[0], models.ErrorKindDuplicate, "already exists"), s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("pending records cannot be finished", func() {
		ids := s.insert("b1", 1)
		_, err := s.store.Finish(s.ctx, models.Completed(ids[0], 1), s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *InMemoryStoreSuite) TestDeleteTerminalOlderThan() {
	old := s.insert("b1", 3)
	s.now = s.now.Add(48 * time.Hour)
	recent := s.insert("b1", 1)

	for _, id := range []int64{old[0], old[1], recent[0]} {
		_, err := s.store.Claim(s.ctx, id, s.now)
		s.Require().NoError(err)
		_, err = s.store.Finish(s.ctx, models.Completed(id, id), s.now)
		s.Require().NoError(err)
	}
	_, err := s.store.Claim(s.ctx, old[2], s.now)
	s.Require().NoError(err)

	deleted, err := s.store.DeleteTerminalOlderThan(s.ctx, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	_, err = s.store.Get(s.ctx, old[2])
	s.NoError(err, "processing records survive retention")
	_, err = s.store.Get(s.ctx, recent[0])
	s.NoError(err, "recent terminal records survive retention")
}

func (s *InMemoryStoreSuite) TestResetStaleProcessing() {
	ids := s.insert("b1", 2)
	_, err := s.store.Claim(s.ctx, ids[0], s.now)
	s.Require().NoError(err)
	_, err = s.store.Claim(s.ctx, ids[1], s.now.Add(time.Hour))
	s.Require().NoError(err)

	reset, err := s.store.ResetStaleProcessing(s.ctx, s.now.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Equal([]int64{ids[0]}, reset)

	rec, err := s.store.Get(s.ctx, ids[0])
	s.Require().NoError(err)
	s.Equal(models.RecordStatusPending, rec.Status)
	s.Nil(rec.ClaimedAt)
}

func (s *InMemoryStoreSuite) TestListFailedNewestFirst() {
	ids := s.insert("b1", 2)
	orderIDs, err := s.store.Insert(s.ctx, "b2", []models.NewRecord{{Kind: models.RecordKindOrder}}, s.now)
	s.Require().NoError(err)

	for i, id := range append(ids, orderIDs...) {
		_, err := s.store.Claim(s.ctx, id, s.now)
		s.Require().NoError(err)
		_, err = s.store.Finish(s.ctx, models.Failed(id, models.ErrorKindValidation, "email is required"), s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
	}

	all, err := s.store.ListFailed(s.ctx, models.FailedRecordFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(orderIDs[0], all[0].ID)
	s.Equal(ids[0], all[2].ID)

	customers, err := s.store.ListFailed(s.ctx, models.FailedRecordFilter{Kinds: []models.RecordKind{models.RecordKindCustomer}})
	s.Require().NoError(err)
	s.Len(customers, 2)

	byBatch, err := s.store.ListFailed(s.ctx, models.FailedRecordFilter{BatchID: "b2", Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(byBatch, 1)
	s.Equal("email is required", byBatch[0].ErrorMessage)
}
