package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/store/batch"
	"stagehand/internal/ingest/store/cancel"
	"stagehand/internal/ingest/store/staging"
	"stagehand/internal/ingest/transform"
	"stagehand/internal/target"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/audit/publisher"
	auditmemory "stagehand/pkg/platform/audit/store/memory"
	"stagehand/pkg/requestcontext"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness wires every ingest service over in-memory stores.
type harness struct {
	t           *testing.T
	ctx         context.Context
	ac          requestcontext.AuditContext
	clock       *fakeClock
	staging     *staging.InMemoryStore
	batches     *batch.InMemoryStore
	cancels     *cancel.InMemoryStore
	gateway     *target.MemoryGateway
	summaries   *Summaries
	auditStore  *auditmemory.InMemoryStore
	intake      *Intake
	processor   *Processor
	coordinator *Coordinator
	sweeper     *Sweeper
	recovery    *Recovery
	query       *Query
}

func newHarness(t *testing.T, gatewayOpts []target.MemoryOption, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		ctx:        context.Background(),
		ac:         requestcontext.NewAuditContext("ops@example.com", DefaultApplication),
		clock:      newFakeClock(),
		staging:    staging.NewInMemory(),
		cancels:    cancel.NewInMemory(),
		gateway:    target.NewMemoryGateway(gatewayOpts...),
		auditStore: auditmemory.NewInMemoryStore(),
	}
	h.batches = batch.NewInMemory(batch.WithRecordCounter(h.staging))
	pub := publisher.NewPublisher(h.auditStore, publisher.WithLogger(quietLogger()))
	t.Cleanup(pub.Close)

	base := []Option{
		WithLogger(quietLogger()),
		WithAuditPublisher(pub),
		WithAuditReader(h.auditStore),
		WithClock(h.clock.Now),
		WithPageSize(2),
	}
	opts = append(base, opts...)

	tr := transform.New(transform.WithBcryptCost(bcrypt.MinCost))
	h.intake = NewIntake(h.batches, h.staging, opts...)
	h.processor = NewProcessor(h.staging, h.gateway, tr, opts...)
	h.summaries = NewSummaries(h.staging, h.gateway, opts...)
	h.coordinator = NewCoordinator(h.batches, h.staging, h.processor, h.cancels,
		append(opts, WithSummaryRefresher(h.summaries))...)
	h.sweeper = NewSweeper(h.staging, h.batches, opts...)
	h.recovery = NewRecovery(h.staging, h.batches, opts...)
	h.query = NewQuery(h.batches, h.staging, opts...)
	return h
}

func customer(email string, kv ...string) models.NewRecord {
	fields := models.Fields{{Name: "email", Value: email}}
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, models.Field{Name: kv[i], Value: kv[i+1]})
	}
	return models.NewRecord{Kind: models.RecordKindCustomer, RawFields: fields}
}

func order(number, email, amount string) models.NewRecord {
	return models.NewRecord{Kind: models.RecordKindOrder, RawFields: models.Fields{
		{Name: "order_number", Value: number},
		{Name: "customer_email", Value: email},
		{Name: "total_amount", Value: amount},
	}}
}

// stage registers a batch of kind and stages recs into it.
func (h *harness) stage(kind models.BatchKind, recs ...models.NewRecord) (string, []int64) {
	h.t.Helper()
	b, err := h.intake.CreateBatch(h.ctx, h.ac, models.NewBatch{Kind: kind, SourceSystem: "crm"})
	require.NoError(h.t, err)
	ids, err := h.intake.StageRecords(h.ctx, h.ac, b.ID, recs)
	require.NoError(h.t, err)
	return b.ID, ids
}

func (h *harness) record(id int64) *models.StagingRecord {
	h.t.Helper()
	rec, err := h.staging.Get(h.ctx, id)
	require.NoError(h.t, err)
	return rec
}

func (h *harness) batch(id string) *models.BatchRun {
	h.t.Helper()
	b, err := h.batches.Get(h.ctx, id)
	require.NoError(h.t, err)
	return b
}

func (h *harness) events(kind audit.EntityKind, entityID string) []audit.Event {
	var out []audit.Event
	for _, e := range h.auditStore.All() {
		if e.EntityKind == kind && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

func newHarnessAuditContext() requestcontext.AuditContext {
	return requestcontext.NewAuditContext("ops@example.com", DefaultApplication)
}
