package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const defaultRetryBackoff = time.Second

// Consumer polls the audit topic as a member of a consumer group and commits
// offsets only after the handler accepted every record before them.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	backoff time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryBackoff sets the pause between attempts at a record the handler rejected.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// New joins group on topic. Extra kgo options are appended to the defaults.
func New(brokers []string, topic, group string, handler Handler, opts []Option, kopts ...kgo.Opt) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("audit consumer requires at least one broker")
	}
	if topic == "" || group == "" {
		return nil, errors.New("audit consumer requires a topic and a group")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	client, err := kgo.NewClient(append(base, kopts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{client: client, handler: handler, logger: slog.Default(), backoff: defaultRetryBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run consumes until ctx is cancelled or the client is closed. A record the handler
// rejects is retried after the backoff; later records wait behind it.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("audit fetch failed", "topic", topic, "partition", partition, "error", err)
		})

		var handled []*kgo.Record
		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			if err := c.handleWithRetry(ctx, rec); err != nil {
				c.commit(handled)
				return err
			}
			handled = append(handled, rec)
		}
		c.commit(handled)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, rec *kgo.Record) error {
	for {
		err := c.handler.Handle(ctx, rec)
		if err == nil {
			return nil
		}
		c.logger.Error("audit record rejected, retrying",
			"partition", rec.Partition,
			"offset", rec.Offset,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

func (c *Consumer) commit(records []*kgo.Record) {
	if len(records) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.client.CommitRecords(ctx, records...); err != nil {
		c.logger.Warn("audit offset commit failed", "error", err)
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}
