// Package kafka publishes audit events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "stagehand/pkg/platform/audit"
)

// Sink implements audit.Store by producing one record per event. Records are keyed
// by entity id so every event of one staging record or batch lands on one partition
// and keeps its order.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to brokers.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit sink requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka audit sink requires a topic")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (s *Sink) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

type payload struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Timestamp   string          `json:"timestamp"`
	EntityKind  string          `json:"entity_kind"`
	EntityID    string          `json:"entity_id"`
	EventKind   string          `json:"event_kind"`
	BeforeState json.RawMessage `json:"before_state,omitempty"`
	AfterState  json.RawMessage `json:"after_state,omitempty"`
	Actor       string          `json:"actor,omitempty"`
	Application string          `json:"application,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// Encode is the record value Append produces for event.
func Encode(event audit.Event) ([]byte, error) {
	value, err := json.Marshal(payload{
		ID:          event.ID.String(),
		Category:    string(event.Category),
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		EntityKind:  string(event.EntityKind),
		EntityID:    event.EntityID,
		EventKind:   string(event.Kind),
		BeforeState: event.BeforeState,
		AfterState:  event.AfterState,
		Actor:       event.Actor,
		Application: event.Application,
		SessionID:   event.SessionID,
		RequestID:   event.RequestID,
		Reason:      event.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return value, nil
}

// Append produces the event synchronously and waits for broker acknowledgement.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := Encode(event)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.EntityID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_kind", Value: []byte(event.Kind)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (s *Sink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	if err != nil {
		return fmt.Errorf("flush audit producer: %w", err)
	}
	return nil
}

// Decode is the inverse of Encode.
func Decode(value []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(value, &p); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	e := audit.Event{
		Category:    audit.EventCategory(p.Category),
		Timestamp:   ts,
		EntityKind:  audit.EntityKind(p.EntityKind),
		EntityID:    p.EntityID,
		Kind:        audit.EventKind(p.EventKind),
		BeforeState: p.BeforeState,
		AfterState:  p.AfterState,
		Actor:       p.Actor,
		Application: p.Application,
		SessionID:   p.SessionID,
		RequestID:   p.RequestID,
		Reason:      p.Reason,
	}
	if err := e.ID.UnmarshalText([]byte(p.ID)); err != nil {
		return audit.Event{}, fmt.Errorf("parse audit event id: %w", err)
	}
	return e, nil
}
