// Package consumer reads audit events back off the kafka topic and persists them,
// routing each record by the category header the sink stamps on it.
package consumer

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "stagehand/pkg/platform/audit"
)

// CategoryHeader is the record header the kafka sink writes the event category to.
const CategoryHeader = "category"

// Handler handles one consumed record.
type Handler interface {
	Handle(ctx context.Context, rec *kgo.Record) error
}

// Router dispatches records to category-specific handlers.
type Router struct {
	handlers map[audit.EventCategory]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[audit.EventCategory]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a category.
func (r *Router) Register(category audit.EventCategory, handler Handler) {
	r.handlers[category] = handler
}

// Handle routes the record to the handler for its category header.
func (r *Router) Handle(ctx context.Context, rec *kgo.Record) error {
	handler, ok := r.handlers[categoryOf(rec)]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, rec)
		}
		r.logger.Warn("no handler for audit category, skipping record",
			"category", categoryOf(rec),
			"key", string(rec.Key),
			"offset", rec.Offset,
		)
		return nil
	}
	return handler.Handle(ctx, rec)
}

func categoryOf(rec *kgo.Record) audit.EventCategory {
	for _, h := range rec.Headers {
		if h.Key == CategoryHeader {
			return audit.EventCategory(h.Value)
		}
	}
	return ""
}
