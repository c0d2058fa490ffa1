package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/service/mocks"
	dErrors "stagehand/pkg/domain-errors"
	"stagehand/pkg/platform/audit"
)

func TestIntake_CreateBatch(t *testing.T) {
	t.Run("registers a pending batch", func(t *testing.T) {
		h := newHarness(t, nil)

		b, err := h.intake.CreateBatch(h.ctx, h.ac, models.NewBatch{Kind: models.BatchKindOrder, SourceSystem: " shop "})
		require.NoError(t, err)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, "shop", b.SourceSystem)
		assert.Equal(t, models.BatchStatusPending, b.Status)
		assert.Equal(t, h.clock.Now(), b.CreatedAt)
		assert.Len(t, h.events(audit.EntityBatchRun, b.ID), 1)
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		h := newHarness(t, nil)
		b, err := h.intake.CreateBatch(h.ctx, h.ac, models.NewBatch{ID: "crm-2024-06-01", Kind: models.BatchKindCustomer})
		require.NoError(t, err)
		assert.Equal(t, "crm-2024-06-01", b.ID)

		_, err = h.intake.CreateBatch(h.ctx, h.ac, models.NewBatch{ID: "crm-2024-06-01", Kind: models.BatchKindCustomer})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	tests := []struct {
		name string
		req  models.NewBatch
		want string
	}{
		{name: "missing kind", req: models.NewBatch{}, want: "batch_kind is required"},
		{name: "unknown kind", req: models.NewBatch{Kind: "invoice"}, want: "batch_kind must be one of"},
		{name: "long id", req: models.NewBatch{ID: strings.Repeat("x", 129), Kind: models.BatchKindCustomer}, want: "batch_id must be"},
		{name: "long source", req: models.NewBatch{SourceSystem: strings.Repeat("x", 129), Kind: models.BatchKindCustomer}, want: "source_system must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, err := h.intake.CreateBatch(h.ctx, h.ac, tt.req)
			require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIntake_StageRecords(t *testing.T) {
	t.Run("stages pending records and raises the total", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, ids := h.stage(models.BatchKindCustomer, customer("ada@example.com"), customer("grace@example.com"))

		require.Len(t, ids, 2)
		assert.Less(t, ids[0], ids[1])
		assert.Equal(t, 2, h.batch(batchID).TotalRecords)
		rec := h.record(ids[0])
		assert.Equal(t, models.RecordStatusPending, rec.Status)
		assert.Equal(t, batchID, rec.BatchID)
		assert.JSONEq(t, `[{"name":"email","value":"ada@example.com"}]`, string(rec.RawBlob))
	})

	t.Run("full sync accepts every kind", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, _ := h.stage(models.BatchKindFullSync, customer("ada@example.com"), order("ORD-1", "ada@example.com", "5"))
		assert.Equal(t, 2, h.batch(batchID).TotalRecords)
	})

	t.Run("rejects records of another kind", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, _ := h.stage(models.BatchKindCustomer, customer("ada@example.com"))

		_, err := h.intake.StageRecords(h.ctx, h.ac, batchID, []models.NewRecord{order("ORD-1", "ada@example.com", "5")})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, 1, h.batch(batchID).TotalRecords)
	})

	t.Run("rejects staging into a running batch", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, _ := h.stage(models.BatchKindCustomer, customer("ada@example.com"))
		_, err := h.batches.MarkRunning(h.ctx, batchID, h.clock.Now())
		require.NoError(t, err)

		_, err = h.intake.StageRecords(h.ctx, h.ac, batchID, []models.NewRecord{customer("grace@example.com")})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		records, err := h.staging.ListByBatch(h.ctx, batchID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("unknown batch", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.intake.StageRecords(h.ctx, h.ac, "missing", []models.NewRecord{customer("ada@example.com")})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("empty request", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, _ := h.stage(models.BatchKindCustomer, customer("ada@example.com"))
		_, err := h.intake.StageRecords(h.ctx, h.ac, batchID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("insert failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		batches := mocks.NewMockBatchStore(ctrl)
		staging := mocks.NewMockStagingStore(ctrl)
		batches.EXPECT().Get(gomock.Any(), "b1").Return(&models.BatchRun{ID: "b1", Kind: models.BatchKindCustomer, Status: models.BatchStatusPending}, nil)
		batches.EXPECT().IncrementTotal(gomock.Any(), "b1", 1).Return(&models.BatchRun{ID: "b1", TotalRecords: 1}, nil)
		staging.EXPECT().Insert(gomock.Any(), "b1", gomock.Len(1), gomock.Any()).Return(nil, errors.New("disk full"))

		intake := NewIntake(batches, staging, WithLogger(quietLogger()))
		_, err := intake.StageRecords(context.Background(), newHarnessAuditContext(), "b1", []models.NewRecord{customer("ada@example.com")})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
