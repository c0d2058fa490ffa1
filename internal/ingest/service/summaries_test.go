package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/summary"
	"stagehand/internal/target"
)

func datedOrder(number, email, amount, createdAt, status string) models.NewRecord {
	rec := order(number, email, amount)
	rec.RawFields = append(rec.RawFields,
		models.Field{Name: "created_at", Value: createdAt},
		models.Field{Name: "status", Value: status},
	)
	return rec
}

func (h *harness) runBatch(batchID string) models.BatchSummary {
	h.t.Helper()
	out, err := h.coordinator.Run(h.ctx, h.ac, batchID)
	require.NoError(h.t, err)
	return out
}

// rowBy returns the single entity of kind whose col equals value.
func (h *harness) rowBy(kind target.EntityKind, col string, value any) map[string]any {
	h.t.Helper()
	var found []map[string]any
	for _, row := range h.gateway.List(kind) {
		if row[col] == value {
			found = append(found, row)
		}
	}
	require.Len(h.t, found, 1, "%s %s=%v", kind, col, value)
	return found[0]
}

func TestSummaries_RefreshAfterOrderBatch(t *testing.T) {
	h := newHarness(t, nil)
	customers, _ := h.stage(models.BatchKindCustomer, customer("ada@example.com"))
	h.runBatch(customers)
	assert.Empty(t, h.gateway.List(target.EntityCustomerSummary), "customer batches do not refresh")

	orders, _ := h.stage(models.BatchKindOrder,
		datedOrder("ORD-1", "ada@example.com", "10.00", "2024-05-28", "delivered"),
		datedOrder("ORD-2", "Ada@Example.com", "15.50", "2024-05-30", "pending"),
		datedOrder("ORD-3", "ada@example.com", "99.00", "2024-05-30", "cancelled"),
		datedOrder("ORD-4", "grace@example.com", "7.25", "2024-05-30", "pending"),
		order("ORD-5", "not-an-email", "1"),
	)
	run := h.runBatch(orders)
	require.Equal(t, 4, run.Processed)

	ada := h.rowBy(target.EntityCustomerSummary, "customer_email", "ada@example.com")
	assert.Equal(t, 2, ada["total_orders"])
	assert.Equal(t, int64(2550), ada["total_spent_cents"])
	assert.Equal(t, int64(1275), ada["avg_order_cents"])
	assert.Equal(t, 2, ada["days_since_last_order"])
	assert.Equal(t, string(summary.SegmentRegular), ada["segment"])
	assert.NotNil(t, ada["customer_id"], "linked to the loaded user")

	grace := h.rowBy(target.EntityCustomerSummary, "customer_email", "grace@example.com")
	assert.Equal(t, 1, grace["total_orders"])
	assert.Nil(t, grace["customer_id"], "no user was loaded for grace")
	assert.Equal(t, string(summary.SegmentNew), grace["segment"])

	may30 := h.rowBy(target.EntityDailySales, "summary_date", time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, may30["total_orders"])
	assert.Equal(t, int64(2275), may30["total_value_cents"])
	assert.Equal(t, 2, may30["total_customers"])
	assert.Equal(t, 1, may30["new_customers"])
	assert.Equal(t, 1, may30["returning_customers"])
	assert.Equal(t, "Thursday", may30["day_of_week"])

	may28 := h.rowBy(target.EntityDailySales, "summary_date", time.Date(2024, 5, 28, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, may28["new_customers"])
	assert.Len(t, h.gateway.List(target.EntityDailySales), 2)
}

func TestSummaries_RefreshIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	batchID, _ := h.stage(models.BatchKindOrder,
		datedOrder("ORD-1", "ada@example.com", "10.00", "2024-05-30", "pending"),
	)
	h.runBatch(batchID)
	first := h.gateway.List(target.EntityCustomerSummary)

	h.clock.Advance(24 * time.Hour)
	refreshed, err := h.summaries.Refresh(h.ctx, batchID)
	require.NoError(t, err)

	assert.Equal(t, 1, refreshed.Customers)
	assert.Equal(t, []time.Time{time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)}, refreshed.Days)
	again := h.gateway.List(target.EntityCustomerSummary)
	require.Len(t, again, 1)
	assert.Equal(t, 2, first[0]["days_since_last_order"])
	assert.Equal(t, 3, again[0]["days_since_last_order"], "recomputed in place")
	assert.Len(t, h.gateway.List(target.EntityDailySales), 1)
}

func TestSummaries_LaterBatchUpdatesExistingRows(t *testing.T) {
	h := newHarness(t, nil)
	first, _ := h.stage(models.BatchKindOrder, datedOrder("ORD-1", "ada@example.com", "10.00", "2024-05-30", "pending"))
	h.runBatch(first)
	second, _ := h.stage(models.BatchKindOrder, datedOrder("ORD-2", "ada@example.com", "6000.00", "2024-05-30", "pending"))
	h.runBatch(second)

	ada := h.rowBy(target.EntityCustomerSummary, "customer_email", "ada@example.com")
	assert.Equal(t, 2, ada["total_orders"])
	assert.Equal(t, string(summary.SegmentVIP), ada["segment"])
	day := h.rowBy(target.EntityDailySales, "summary_date", time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, day["total_orders"])
	assert.Equal(t, 1, day["new_customers"])
}

func TestSummaries_FullSyncCoversCustomersWithoutOrders(t *testing.T) {
	h := newHarness(t, nil)
	batchID, _ := h.stage(models.BatchKindFullSync,
		customer("ada@example.com"),
		customer("grace@example.com"),
		datedOrder("ORD-1", "ada@example.com", "10.00", "2024-05-30", "pending"),
	)
	h.runBatch(batchID)

	assert.Len(t, h.gateway.List(target.EntityCustomerSummary), 2)
	grace := h.rowBy(target.EntityCustomerSummary, "customer_email", "grace@example.com")
	assert.Equal(t, 0, grace["total_orders"])
	assert.Nil(t, grace["days_since_last_order"])
	assert.Equal(t, string(summary.SegmentNew), grace["segment"])
}

func TestSummaries_UndatedOrdersSkipDailyRollup(t *testing.T) {
	h := newHarness(t, nil)
	batchID, _ := h.stage(models.BatchKindOrder, order("ORD-1", "ada@example.com", "10"))

	h.runBatch(batchID)

	ada := h.rowBy(target.EntityCustomerSummary, "customer_email", "ada@example.com")
	assert.Equal(t, 1, ada["total_orders"])
	assert.Nil(t, ada["last_order_at"])
	assert.Empty(t, h.gateway.List(target.EntityDailySales))
}

func TestSummaries_RefreshFailureLeavesRunCompleted(t *testing.T) {
	h := newHarness(t, []target.MemoryOption{target.WithCreateHook(
		func(_ context.Context, kind target.EntityKind, _ map[string]any) error {
			if kind == target.EntityDailySales {
				return errors.New("connection reset")
			}
			return nil
		})})
	batchID, ids := h.stage(models.BatchKindOrder,
		datedOrder("ORD-1", "ada@example.com", "10.00", "2024-05-30", "pending"),
	)

	run := h.runBatch(batchID)

	assert.Equal(t, models.BatchStatusCompleted, run.Status)
	assert.Equal(t, models.RecordStatusCompleted, h.record(ids[0]).Status)
	assert.Empty(t, h.gateway.List(target.EntityCustomerSummary), "summary upserts commit together")

	_, err := h.summaries.Refresh(h.ctx, batchID)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSummaries_NothingLoaded(t *testing.T) {
	h := newHarness(t, nil)
	batchID, _ := h.stage(models.BatchKindOrder, order("ORD-1", "broken", "10"))

	run := h.runBatch(batchID)
	require.Equal(t, 1, run.Failed)

	refreshed, err := h.summaries.Refresh(h.ctx, batchID)
	require.NoError(t, err)
	assert.Zero(t, refreshed.Customers)
	assert.Empty(t, h.gateway.List(target.EntityCustomerSummary))
}
