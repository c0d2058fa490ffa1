// Package publisher delivers audit events to a sink without ever blocking the caller
// on sink health.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/circuit"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

const (
	drainBatchSize  = 64
	deliveryTimeout = 5 * time.Second
)

// Metrics receives delivery counters. A nil Metrics is allowed.
type Metrics interface {
	IncAuditEmitted(category string)
	IncAuditDropped(reason string)
	IncAuditDeliveryFailed()
}

// Publisher fans events out to a single audit.Store. In sync mode (the default) Emit
// delivers inline; with WithAsyncBuffer it enqueues into a drop-oldest ring buffer
// drained by one background goroutine. Delivery failures are logged and counted,
// never returned to the emitter.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics Metrics
	breaker *circuit.Breaker
	now     func() time.Time

	buffer *RingBuffer
	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery.
func WithAsyncBuffer(capacity int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(capacity)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker replaces the default circuit breaker guarding the sink.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		breaker: circuit.New("audit_sink", circuit.WithFailureThreshold(5), circuit.WithCooldown(10*time.Second)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.notify = make(chan struct{}, 1)
		p.done = make(chan struct{})
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. It never blocks on the sink.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	event.Normalize(p.now())
	if p.metrics != nil {
		p.metrics.IncAuditEmitted(string(event.Category))
	}

	if p.buffer == nil {
		p.deliver(ctx, event)
		return nil
	}

	if p.buffer.Enqueue(event) {
		p.logger.WarnContext(ctx, "audit buffer full, dropped oldest event")
		if p.metrics != nil {
			p.metrics.IncAuditDropped("buffer_full")
		}
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting events and drains whatever is buffered.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.done != nil {
		close(p.done)
		p.wg.Wait()
	}
}

// Pending returns the number of buffered, undelivered events.
func (p *Publisher) Pending() int {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.Len()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.notify:
			p.drain()
		case <-p.done:
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	for {
		batch := p.buffer.DequeueBatch(drainBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			p.deliver(context.Background(), event)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncAuditDropped("circuit_open")
		}
		return
	}
	// The sink must see the event even when the emitter's context is already done.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()
	if err := p.store.Append(ctx, event); err != nil {
		_, change := p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.IncAuditDeliveryFailed()
		}
		p.logger.ErrorContext(ctx, "audit delivery failed",
			"event_id", event.ID.String(),
			"entity_kind", string(event.EntityKind),
			"entity_id", event.EntityID,
			"event_kind", string(event.Kind),
			"error", err,
		)
		if change.Opened {
			p.logger.WarnContext(ctx, "audit sink circuit opened")
		}
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "audit sink circuit closed")
	}
}
