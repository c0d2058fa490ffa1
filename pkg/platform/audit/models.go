package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so sinks can route
// and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers lifecycle changes of ingested data: batch runs
	// finishing and records reaching a terminal status.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers intermediate transitions (claims, run starts,
	// sweeps) useful for debugging and forensic replay.
	CategoryOperations EventCategory = "operations"
)

// EntityKind names the entity an event is about.
type EntityKind string

const (
	EntityStagingRecord EntityKind = "staging_record"
	EntityBatchRun      EntityKind = "batch_run"
	// EntityRetention events describe a whole retention sweep rather than one row.
	EntityRetention EntityKind = "retention_sweep"
)

// EventKind is the kind of state change recorded.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventTransitioned EventKind = "transitioned"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
)

// Category returns the category for this event kind. Terminal kinds are compliance
// relevant; everything else is operational.
func (k EventKind) Category() EventCategory {
	switch k {
	case EventCompleted, EventFailed:
		return CategoryCompliance
	default:
		return CategoryOperations
	}
}

// Event is emitted at every notable state change. It is append-only; sinks never
// mutate or delete events.
type Event struct {
	ID          uuid.UUID
	Category    EventCategory
	Timestamp   time.Time
	EntityKind  EntityKind
	EntityID    string
	Kind        EventKind
	BeforeState json.RawMessage
	AfterState  json.RawMessage
	Actor       string
	Application string
	SessionID   string
	RequestID   string
	Reason      string
}

// Normalize fills in the id, timestamp and category when the emitter left them zero.
func (e *Event) Normalize(now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Category == "" {
		e.Category = e.Kind.Category()
	}
}

// Snapshot marshals a state snapshot for BeforeState/AfterState. Snapshots are
// opaque to the audit layer; a value that cannot be marshaled yields nil.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Filter narrows event listings.
type Filter struct {
	EntityKind EntityKind
	EntityID   string
	Limit      int
}

// Reader lists persisted events, most recent first.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Event, error)
}
