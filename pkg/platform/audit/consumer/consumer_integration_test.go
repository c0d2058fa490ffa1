//go:build integration

package consumer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/audit/consumer"
	"stagehand/pkg/platform/audit/sink/kafka"
	auditmemory "stagehand/pkg/platform/audit/store/memory"
	"stagehand/pkg/testutil/containers"
)

type ConsumerSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestConsumerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsumerSuite))
}

func (s *ConsumerSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *ConsumerSuite) TestCopiesEveryCategoryIntoTheStore() {
	ctx := context.Background()
	topic := "audit-" + uuid.NewString()

	sink, err := kafka.New(s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	s.Require().NoError(sink.EnsureTopic(ctx, 3, 1))
	for _, kind := range []audit.EventKind{audit.EventCreated, audit.EventTransitioned, audit.EventCompleted} {
		e := audit.Event{Kind: kind, EntityKind: audit.EntityStagingRecord, EntityID: "42"}
		e.Normalize(time.Now())
		s.Require().NoError(sink.Append(ctx, e))
	}
	s.Require().NoError(sink.Close(ctx))

	store := auditmemory.NewInMemoryStore()
	router := consumer.NewRouter(nil, nil)
	router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(store, nil))
	router.Register(audit.CategoryOperations, consumer.NewOpsHandler(store, nil))

	c, err := consumer.New(s.redpanda.Brokers, topic, "group-"+uuid.NewString(), router, nil)
	s.Require().NoError(err)
	defer c.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	s.Eventually(func() bool { return len(store.All()) == 3 }, 20*time.Second, 100*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)

	events, err := store.List(ctx, audit.Filter{EntityKind: audit.EntityStagingRecord, EntityID: "42"})
	s.Require().NoError(err)
	s.Equal(audit.EventCompleted, events[0].Kind)
}
