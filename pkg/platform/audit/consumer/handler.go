package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/audit/sink/kafka"
)

// StoreHandler decodes records and appends them to an audit store.
//
// A strict handler returns store failures so the record is retried and never
// committed; compliance events use it. A best-effort handler logs and drops them.
// Malformed records are always logged and skipped, since redelivery cannot fix them.
type StoreHandler struct {
	store  audit.Store
	strict bool
	logger *slog.Logger
}

// NewComplianceHandler persists compliance events and blocks on store failures.
func NewComplianceHandler(store audit.Store, logger *slog.Logger) *StoreHandler {
	return newStoreHandler(store, true, logger)
}

// NewOpsHandler persists operational events on a best-effort basis.
func NewOpsHandler(store audit.Store, logger *slog.Logger) *StoreHandler {
	return newStoreHandler(store, false, logger)
}

func newStoreHandler(store audit.Store, strict bool, logger *slog.Logger) *StoreHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreHandler{store: store, strict: strict, logger: logger}
}

func (h *StoreHandler) Handle(ctx context.Context, rec *kgo.Record) error {
	event, err := kafka.Decode(rec.Value)
	if err != nil {
		h.logger.Error("failed to decode audit record",
			"key", string(rec.Key),
			"partition", rec.Partition,
			"offset", rec.Offset,
			"error", err,
		)
		return nil
	}

	if err := h.store.Append(ctx, event); err != nil {
		if !h.strict {
			h.logger.Warn("dropped audit event",
				"event_id", event.ID,
				"entity_kind", event.EntityKind,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("store audit event %s: %w", event.ID, err)
	}

	h.logger.Debug("stored audit event",
		"event_id", event.ID,
		"entity_kind", event.EntityKind,
		"entity_id", event.EntityID,
		"kind", event.Kind,
	)
	return nil
}
