// Package requestcontext provides HTTP-independent context accessors for request-scoped
// values, plus the AuditContext value that stamps every audit event.
//
// Middleware sets values on the context; handlers lift them into an AuditContext and pass
// it explicitly to services, so the ingestion engine never reads caller identity from
// ambient state:
//
//	ctx = requestcontext.WithActor(ctx, "ops@example.com")
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//	ac := requestcontext.AuditContextFrom(ctx, "stagehand")
//	summary, err := coordinator.Run(ctx, ac, batchID)
package requestcontext

import (
	"context"

	"github.com/google/uuid"
)

type (
	actorKey     struct{}
	requestIDKey struct{}
	sessionIDKey struct{}
)

var (
	ContextKeyActor     = actorKey{}
	ContextKeyRequestID = requestIDKey{}
	ContextKeySessionID = sessionIDKey{}
)

// Actor retrieves the authenticated operator identity from the context.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor injects the operator identity into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// SessionID retrieves the operator session carried by the bearer token, if any.
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return id
	}
	return ""
}

// WithSessionID injects the operator session id into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// SystemActor is recorded when a background loop acts without an operator.
const SystemActor = "etl_system"

// AuditContext identifies who is acting and on behalf of which application session.
// It is passed by value into every coordinator, processor, sweeper and recovery call.
type AuditContext struct {
	Actor       string
	Application string
	SessionID   string
	RequestID   string
}

// NewAuditContext builds an AuditContext with a fresh session id. An empty actor
// becomes SystemActor.
func NewAuditContext(actor, application string) AuditContext {
	if actor == "" {
		actor = SystemActor
	}
	return AuditContext{
		Actor:       actor,
		Application: application,
		SessionID:   "etl_" + uuid.NewString(),
	}
}

// AuditContextFrom lifts the actor, session and request id set by middleware into
// an AuditContext. Without a token session a fresh one is generated.
func AuditContextFrom(ctx context.Context, application string) AuditContext {
	ac := NewAuditContext(Actor(ctx), application)
	if id := SessionID(ctx); id != "" {
		ac.SessionID = id
	}
	ac.RequestID = RequestID(ctx)
	return ac
}
