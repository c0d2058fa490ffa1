package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/audit"
)

func TestRecovery_Recover(t *testing.T) {
	t.Run("resets records past their lease", func(t *testing.T) {
		h := newHarness(t, nil)
		now := h.clock.Now()
		stale := h.seedRecord("b1", now.Add(-time.Hour), models.RecordStatusProcessing)
		fresh := h.seedRecord("b1", now.Add(-5*time.Minute), models.RecordStatusProcessing)
		done := h.seedRecord("b1", now.Add(-time.Hour), models.RecordStatusCompleted)

		result, err := h.recovery.Recover(h.ctx, h.ac)
		require.NoError(t, err)

		assert.Equal(t, []int64{stale}, result.ResetRecords)
		rec := h.record(stale)
		assert.Equal(t, models.RecordStatusPending, rec.Status)
		assert.Nil(t, rec.ClaimedAt)
		assert.Equal(t, models.RecordStatusProcessing, h.record(fresh).Status)
		assert.Equal(t, models.RecordStatusCompleted, h.record(done).Status)

		events := h.events(audit.EntityStagingRecord, strconv.FormatInt(stale, 10))
		require.NotEmpty(t, events)
		assert.Equal(t, "lease expired", events[len(events)-1].Reason)
	})

	t.Run("abandons batches past the run timeout", func(t *testing.T) {
		h := newHarness(t, nil)
		now := h.clock.Now()
		h.seedBatch("stuck", now.Add(-7*time.Hour), models.BatchStatusRunning)
		h.seedBatch("busy", now.Add(-time.Hour), models.BatchStatusRunning)

		result, err := h.recovery.Recover(h.ctx, h.ac)
		require.NoError(t, err)

		assert.Equal(t, []string{"stuck"}, result.AbandonedBatches)
		stuck := h.batch("stuck")
		assert.Equal(t, models.BatchStatusFailed, stuck.Status)
		assert.Equal(t, AbandonedReason, stuck.LastError)
		assert.NotNil(t, stuck.CompletedAt)
		assert.Equal(t, models.BatchStatusRunning, h.batch("busy").Status)

		events := h.events(audit.EntityBatchRun, "stuck")
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, audit.EventFailed, last.Kind)
		assert.Equal(t, AbandonedReason, last.Reason)
	})

	t.Run("recovered work is picked up by the next run", func(t *testing.T) {
		h := newHarness(t, nil)
		batchID, ids := h.stage(models.BatchKindCustomer, customer("ada@example.com"), customer("grace@example.com"))
		_, err := h.batches.MarkRunning(h.ctx, batchID, h.clock.Now())
		require.NoError(t, err)
		_, err = h.staging.Claim(h.ctx, ids[0], h.clock.Now())
		require.NoError(t, err)

		h.clock.Advance(7 * time.Hour)
		_, err = h.recovery.Recover(h.ctx, h.ac)
		require.NoError(t, err)

		summary, err := h.coordinator.Run(h.ctx, h.ac, batchID)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Processed)
		b := h.batch(batchID)
		assert.Equal(t, models.BatchStatusCompleted, b.Status)
		assert.Empty(t, b.LastError)
	})

	t.Run("nothing stale is a no-op", func(t *testing.T) {
		h := newHarness(t, nil)
		result, err := h.recovery.Recover(h.ctx, h.ac)
		require.NoError(t, err)
		assert.Empty(t, result.ResetRecords)
		assert.Empty(t, result.AbandonedBatches)
	})
}
