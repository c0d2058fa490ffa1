package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/summary"
	"stagehand/internal/target"
	"stagehand/pkg/email"
)

// Summaries recomputes the customer and daily sales rollups touched by a batch's
// loaded records and upserts them into the target store.
type Summaries struct {
	staging StagingStore
	gateway target.Gateway

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewSummaries(staging StagingStore, gateway target.Gateway, opts ...Option) *Summaries {
	cfg := newServiceConfig(opts)
	return &Summaries{
		staging: staging,
		gateway: gateway,
		logger:  cfg.logger,
		tracer:  cfg.tracer,
		now:     cfg.now,
	}
}

// Refresh rebuilds the summary of every customer a completed record of the batch
// names, and the daily summary of every day a completed order of the batch falls
// on. Rollups are recomputed from all stored orders, so refreshing twice is
// harmless. All upserts commit together.
func (s *Summaries) Refresh(ctx context.Context, batchID string) (models.SummaryRefresh, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.refresh_summaries", trace.WithAttributes(attribute.String("batch.id", batchID)))
	defer span.End()
	result := models.SummaryRefresh{BatchID: batchID}

	recs, err := s.staging.ListByBatch(ctx, batchID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list records failed")
		return result, fmt.Errorf("list batch records: %w", err)
	}
	emails, orderNumbers := touched(recs)
	if len(emails) == 0 {
		return result, nil
	}

	now := s.now()
	err = s.gateway.WriteGroup(ctx, func(ctx context.Context, tx target.Tx) error {
		orders, err := tx.ListOrders(ctx, target.OrderFilter{CustomerEmails: emails})
		if err != nil {
			return err
		}
		byEmail := make(map[string][]target.OrderFact, len(emails))
		days := make(map[time.Time]struct{})
		for _, o := range orders {
			byEmail[o.CustomerEmail] = append(byEmail[o.CustomerEmail], o)
			if _, loaded := orderNumbers[o.OrderNumber]; loaded && o.OrderedAt != nil {
				days[summary.Day(*o.OrderedAt)] = struct{}{}
			}
		}

		for _, addr := range emails {
			var customerID *int64
			id, found, err := tx.FindByNaturalKey(ctx, target.EntityUser, target.NaturalKey{"email": addr})
			if err != nil {
				return fmt.Errorf("find customer %s: %w", addr, err)
			}
			if found {
				customerID = &id
			}
			row := summary.ForCustomer(addr, customerID, byEmail[addr], now)
			if _, err := tx.UpsertEntity(ctx, target.EntityCustomerSummary, row.Fields()); err != nil {
				return err
			}
		}
		result.Customers = len(emails)

		for _, day := range slices.SortedFunc(maps.Keys(days), time.Time.Compare) {
			written, err := refreshDay(ctx, tx, day, now)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", day.Format(time.DateOnly), err)
			}
			if written {
				result.Days = append(result.Days, day)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return models.SummaryRefresh{BatchID: batchID}, fmt.Errorf("refresh summaries: %w", err)
	}
	span.SetAttributes(
		attribute.Int("summary.customers", result.Customers),
		attribute.Int("summary.days", len(result.Days)),
	)
	return result, nil
}

// refreshDay upserts one day's rollup. Days whose orders were all cancelled are
// left alone.
func refreshDay(ctx context.Context, tx target.Tx, day, now time.Time) (bool, error) {
	orders, err := tx.ListOrders(ctx, target.OrderFilter{From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return false, err
	}
	customers := make(map[string]struct{})
	for _, o := range orders {
		customers[o.CustomerEmail] = struct{}{}
	}
	if len(customers) == 0 {
		return false, nil
	}
	history, err := tx.ListOrders(ctx, target.OrderFilter{CustomerEmails: slices.Sorted(maps.Keys(customers))})
	if err != nil {
		return false, err
	}
	daily := summary.ForDay(day, orders, summary.FirstOrderDays(history), now)
	if daily.TotalOrders == 0 {
		return false, nil
	}
	if _, err := tx.UpsertEntity(ctx, target.EntityDailySales, daily.Fields()); err != nil {
		return false, err
	}
	return true, nil
}

// touched collects the customer emails and order numbers of a batch's completed
// records, emails sorted.
func touched(recs []models.StagingRecord) ([]string, map[string]struct{}) {
	emails := make(map[string]struct{})
	orderNumbers := make(map[string]struct{})
	for _, rec := range recs {
		if rec.Status != models.RecordStatusCompleted {
			continue
		}
		switch rec.Kind {
		case models.RecordKindCustomer:
			emails[email.Normalize(rec.RawFields.Value("email"))] = struct{}{}
		case models.RecordKindOrder:
			emails[email.Normalize(rec.RawFields.Value("customer_email"))] = struct{}{}
			orderNumbers[rec.RawFields.Value("order_number")] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(emails)), orderNumbers
}
