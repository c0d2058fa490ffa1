//go:build integration

package cancel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stagehand/internal/ingest/store/cancel"
	"stagehand/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cancel.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = cancel.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRequestAndClear() {
	ctx := context.Background()

	requested, err := s.store.IsRequested(ctx, "b1")
	s.Require().NoError(err)
	s.False(requested)

	s.Require().NoError(s.store.Request(ctx, "b1", time.Minute))
	requested, err = s.store.IsRequested(ctx, "b1")
	s.Require().NoError(err)
	s.True(requested)

	other, err := s.store.IsRequested(ctx, "b2")
	s.Require().NoError(err)
	s.False(other, "signals are per batch")

	s.Require().NoError(s.store.Clear(ctx, "b1"))
	requested, err = s.store.IsRequested(ctx, "b1")
	s.Require().NoError(err)
	s.False(requested)
}

func (s *RedisStoreSuite) TestRequestExpires() {
	ctx := context.Background()
	s.Require().NoError(s.store.Request(ctx, "b1", 50*time.Millisecond))

	s.Eventually(func() bool {
		requested, err := s.store.IsRequested(ctx, "b1")
		return err == nil && !requested
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *RedisStoreSuite) TestClearWithoutRequest() {
	s.NoError(s.store.Clear(context.Background(), "never-requested"))
}
