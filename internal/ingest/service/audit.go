package service

import (
	"context"
	"log/slog"
	"strconv"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/platform/audit"
	"stagehand/pkg/requestcontext"
)

// auditEmitter stamps events with the caller's AuditContext and hands them to the
// publisher. Emission never fails the caller: the publisher buffers and a rejected
// event is logged.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, ac requestcontext.AuditContext, event audit.Event) {
	event.Actor = ac.Actor
	event.Application = ac.Application
	event.SessionID = ac.SessionID
	event.RequestID = ac.RequestID

	if e.logger != nil {
		e.logger.InfoContext(ctx, string(event.Kind),
			"log_type", "audit",
			"entity_kind", string(event.EntityKind),
			"entity_id", event.EntityID,
			"actor", event.Actor,
			"session_id", event.SessionID,
			"reason", event.Reason,
		)
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "audit event not accepted",
			"error", err,
			"entity_kind", string(event.EntityKind),
			"entity_id", event.EntityID,
		)
	}
}

func (e *auditEmitter) recordEvent(ctx context.Context, ac requestcontext.AuditContext, id int64, kind audit.EventKind, before, after *models.StagingRecord, reason string) {
	event := audit.Event{
		EntityKind: audit.EntityStagingRecord,
		EntityID:   strconv.FormatInt(id, 10),
		Kind:       kind,
		Reason:     reason,
	}
	if before != nil {
		event.BeforeState = audit.Snapshot(before.Snapshot())
	}
	if after != nil {
		event.AfterState = audit.Snapshot(after.Snapshot())
	}
	e.emit(ctx, ac, event)
}

func (e *auditEmitter) batchEvent(ctx context.Context, ac requestcontext.AuditContext, id string, kind audit.EventKind, before, after any, reason string) {
	e.emit(ctx, ac, audit.Event{
		EntityKind:  audit.EntityBatchRun,
		EntityID:    id,
		Kind:        kind,
		BeforeState: audit.Snapshot(before),
		AfterState:  audit.Snapshot(after),
		Reason:      reason,
	})
}
