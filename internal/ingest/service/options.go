package service

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ingestmetrics "stagehand/internal/ingest/metrics"
)

const (
	DefaultPageSize      = 500
	DefaultRecordTimeout = 10 * time.Second
	DefaultRecordLease   = 15 * time.Minute
	DefaultRunTimeout    = 6 * time.Hour
	DefaultCancelTTL     = 24 * time.Hour
	DefaultApplication   = "stagehand"
)

const tracerName = "stagehand/internal/ingest"

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *ingestmetrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
	pageSize       int
	recordTimeout  time.Duration
	recordLease    time.Duration
	runTimeout     time.Duration
	cancelTTL      time.Duration
	tx             StoreTx
	auditReader    AuditReader
	summaries      SummaryRefresher
}

// Option configures any of the ingest services. Options a service does not use are ignored.
type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

// WithAuditReader enables the audit trail query on the query service.
func WithAuditReader(reader AuditReader) Option {
	return func(c *serviceConfig) {
		c.auditReader = reader
	}
}

func WithMetrics(m *ingestmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = tracer
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) {
		c.now = now
	}
}

// WithPageSize bounds how many pending records the coordinator reads per page.
func WithPageSize(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRecordTimeout bounds the target-store work of one record.
func WithRecordTimeout(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.recordTimeout = d
		}
	}
}

// WithRecordLease sets how long a record may stay processing before recovery resets it.
func WithRecordLease(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.recordLease = d
		}
	}
}

// WithRunTimeout sets how long a batch may stay running before recovery abandons it.
func WithRunTimeout(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.runTimeout = d
		}
	}
}

// WithCancelTTL sets how long an unconsumed cancel request stays in effect.
func WithCancelTTL(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.cancelTTL = d
		}
	}
}

// WithStoreTx sets the transaction boundary used when staging records.
func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

// WithSummaryRefresher makes the coordinator refresh reporting summaries after an
// order or full sync run completes with loaded records.
func WithSummaryRefresher(r SummaryRefresher) Option {
	return func(c *serviceConfig) {
		c.summaries = r
	}
}

func newServiceConfig(opts []Option) *serviceConfig {
	c := &serviceConfig{
		now:           time.Now,
		pageSize:      DefaultPageSize,
		recordTimeout: DefaultRecordTimeout,
		recordLease:   DefaultRecordLease,
		runTimeout:    DefaultRunTimeout,
		cancelTTL:     DefaultCancelTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.tx == nil {
		c.tx = newInMemoryStoreTx()
	}
	return c
}
