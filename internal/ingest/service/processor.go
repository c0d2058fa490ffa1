package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ingestmetrics "stagehand/internal/ingest/metrics"
	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/transform"
	"stagehand/internal/ingest/validation"
	"stagehand/internal/target"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/sentinel"
	"stagehand/pkg/requestcontext"
)

// MessageAlreadyExists is the error message of every duplicate failure.
const MessageAlreadyExists = "already exists"

var errDuplicate = errors.New(MessageAlreadyExists)

const (
	// maxSuffix bounds the numbered candidates tried for a generated field before
	// falling back to a random suffix.
	maxSuffix = 50
	// generatedAttempts bounds write-group retries when a concurrent writer takes
	// a generated value between lookup and insert.
	generatedAttempts = 3
)

// Processor drives one staged record through claim, validation, duplicate
// detection, transformation, load and its terminal status write.
type Processor struct {
	staging     StagingStore
	gateway     target.Gateway
	transformer *transform.Transformer

	auditEmitter  *auditEmitter
	logger        *slog.Logger
	metrics       *ingestmetrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time
	recordTimeout time.Duration
}

func NewProcessor(staging StagingStore, gateway target.Gateway, transformer *transform.Transformer, opts ...Option) *Processor {
	cfg := newServiceConfig(opts)
	if transformer == nil {
		transformer = transform.New()
	}
	return &Processor{
		staging:       staging,
		gateway:       gateway,
		transformer:   transformer,
		auditEmitter:  newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:        cfg.logger,
		metrics:       cfg.metrics,
		tracer:        cfg.tracer,
		now:           cfg.now,
		recordTimeout: cfg.recordTimeout,
	}
}

// Process handles one record and reports what happened as an outcome. Validation,
// duplicate and load problems are failed outcomes, never errors. The returned error
// is reserved for the staging store failing, which the coordinator treats as fatal
// for the batch loop.
func (p *Processor) Process(ctx context.Context, ac requestcontext.AuditContext, rec models.StagingRecord) (models.RecordOutcome, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.process_record", trace.WithAttributes(
		attribute.Int64("record.id", rec.ID),
		attribute.String("record.kind", string(rec.Kind)),
		attribute.String("batch.id", rec.BatchID),
	))
	defer span.End()
	start := time.Now()

	claimed, err := p.staging.Claim(ctx, rec.ID, p.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			span.SetAttributes(attribute.String("record.outcome", string(models.OutcomeSkipped)))
			p.observe(rec.Kind, models.Skipped(rec.ID), start)
			return models.Skipped(rec.ID), nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return models.RecordOutcome{}, fmt.Errorf("claim record %d: %w", rec.ID, err)
	}
	p.auditEmitter.recordEvent(ctx, ac, rec.ID, audit.EventTransitioned, &rec, claimed, "claimed")

	outcome := p.evaluate(ctx, *claimed)

	// The terminal write must land even when the run is being cancelled.
	final, err := p.staging.Finish(context.WithoutCancel(ctx), outcome, p.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finish failed")
		return models.RecordOutcome{}, fmt.Errorf("finish record %d: %w", rec.ID, err)
	}

	kind, reason := audit.EventCompleted, ""
	if outcome.Status == models.OutcomeFailed {
		kind, reason = audit.EventFailed, outcome.Err.Message
		span.SetAttributes(attribute.String("record.error_kind", string(outcome.Err.Kind)))
	}
	p.auditEmitter.recordEvent(ctx, ac, rec.ID, kind, claimed, final, reason)
	span.SetAttributes(attribute.String("record.outcome", string(outcome.Status)))
	p.observe(rec.Kind, outcome, start)
	return outcome, nil
}

// evaluate runs the validation, duplicate and load steps for a claimed record.
func (p *Processor) evaluate(ctx context.Context, rec models.StagingRecord) models.RecordOutcome {
	if recErr := validation.Validate(rec.Kind, rec.RawFields); recErr != nil {
		return models.Failed(rec.ID, recErr.Kind, recErr.Message)
	}

	primary, err := transform.PrimaryKind(rec.Kind)
	if err != nil {
		return models.Failed(rec.ID, models.ErrorKindValidation, "record_kind is invalid")
	}
	key := transform.NaturalKey(rec.Kind, rec.RawFields)
	// Planning is pure; its error is only reported once the duplicate check has run.
	plan, planErr := p.transformer.Plan(rec.Kind, rec.RawFields)

	recordCtx, cancel := context.WithTimeout(ctx, p.recordTimeout)
	defer cancel()

	var entityID, existingID int64
	for attempt := 1; ; attempt++ {
		err = p.gateway.WriteGroup(recordCtx, func(ctx context.Context, tx target.Tx) error {
			id, found, err := tx.FindByNaturalKey(ctx, primary, key)
			if err != nil {
				return fmt.Errorf("find %s by natural key: %w", primary, err)
			}
			if found {
				existingID = id
				return errDuplicate
			}
			if planErr != nil {
				return planErr
			}
			entityID, err = load(ctx, tx, plan)
			return err
		})
		// The natural key is re-checked on every attempt, so a real duplicate still
		// surfaces as one.
		if !errors.Is(err, target.ErrAlreadyExists) || len(plan.Generated) == 0 || attempt >= generatedAttempts {
			break
		}
	}

	var recErr *models.RecordError
	switch {
	case err == nil:
		return models.Completed(rec.ID, entityID)
	case errors.Is(err, errDuplicate):
		out := models.Failed(rec.ID, models.ErrorKindDuplicate, MessageAlreadyExists)
		out.TargetEntityID = &existingID
		return out
	case errors.Is(err, target.ErrAlreadyExists):
		return models.Failed(rec.ID, models.ErrorKindDuplicate, MessageAlreadyExists)
	case errors.As(err, &recErr):
		return models.Failed(rec.ID, recErr.Kind, recErr.Message)
	case errors.Is(recordCtx.Err(), context.DeadlineExceeded):
		return models.Failed(rec.ID, models.ErrorKindTransientLoad,
			fmt.Sprintf("load timed out after %s", p.recordTimeout))
	default:
		p.logger.WarnContext(ctx, "record load failed",
			"record_id", rec.ID,
			"batch_id", rec.BatchID,
			"error", err,
		)
		return models.Failed(rec.ID, models.ErrorKindTransientLoad, "load failed: "+err.Error())
	}
}

// load writes a plan: optional references, the primary entity, then its children.
func load(ctx context.Context, tx target.Tx, plan transform.Plan) (int64, error) {
	fields := maps.Clone(plan.Primary.Fields)
	for _, ref := range plan.References {
		id, found, err := tx.FindByNaturalKey(ctx, ref.Kind, ref.Key)
		if err != nil {
			return 0, fmt.Errorf("resolve %s: %w", ref.Field, err)
		}
		if found {
			fields[ref.Field] = id
		}
	}
	for _, name := range plan.Generated {
		value, err := freeValue(ctx, tx, plan.Primary.Kind, name, fmt.Sprint(fields[name]))
		if err != nil {
			return 0, err
		}
		fields[name] = value
	}

	id, err := tx.CreateEntity(ctx, plan.Primary.Kind, fields)
	if err != nil {
		return 0, err
	}
	for _, child := range plan.Children {
		childFields := maps.Clone(child.Fields)
		childFields[child.OwnerField] = id
		if _, err := tx.CreateEntity(ctx, child.Kind, childFields); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// freeValue returns base, or base with the lowest numeric suffix from 2 that no
// existing kind row holds in field. The lookup runs before the insert because a
// unique violation aborts a postgres transaction.
func freeValue(ctx context.Context, tx target.Tx, kind target.EntityKind, field, base string) (string, error) {
	candidate := base
	for n := 2; n <= maxSuffix+1; n++ {
		_, taken, err := tx.FindByNaturalKey(ctx, kind, target.NaturalKey{field: candidate})
		if err != nil {
			return "", fmt.Errorf("check %s %q: %w", field, candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

func (p *Processor) observe(kind models.RecordKind, outcome models.RecordOutcome, start time.Time) {
	if p.metrics == nil {
		return
	}
	errorKind := ""
	if outcome.Err != nil {
		errorKind = string(outcome.Err.Kind)
	}
	p.metrics.ObserveRecord(string(kind), string(outcome.Status), errorKind, start)
}
