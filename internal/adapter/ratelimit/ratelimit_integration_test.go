//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	redispkg "github.com/vadimbarashkov/swooosh/pkg/redis"
)

type SlidingWindowIntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	redisCont *tcredis.RedisContainer
	client    *goredis.Client
}

func (suite *SlidingWindowIntegrationTestSuite) SetupSuite() {
	suite.ctx = context.Background()

	redisCont, err := tcredis.Run(suite.ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(suite.T(), err)
	suite.redisCont = redisCont

	url, err := redisCont.ConnectionString(suite.ctx)
	require.NoError(suite.T(), err)

	suite.client, err = redispkg.New(suite.ctx, url)
	require.NoError(suite.T(), err)
}

func (suite *SlidingWindowIntegrationTestSuite) TearDownSuite() {
	if suite.client != nil {
		suite.client.Close()
	}
	if suite.redisCont != nil {
		suite.redisCont.Terminate(suite.ctx)
	}
}

func (suite *SlidingWindowIntegrationTestSuite) SetupTest() {
	require.NoError(suite.T(), suite.client.FlushDB(suite.ctx).Err())
}

func (suite *SlidingWindowIntegrationTestSuite) TestConcurrentRequests() {
	sw := NewSlidingWindow(suite.client, 200, time.Hour)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)

	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := sw.Allow(suite.ctx, "10.0.0.1")
			suite.NoError(err)
			if ok {
				allowed.Add(1)
			}
		}()
	}

	wg.Wait()

	suite.Equal(int64(200), allowed.Load())
	suite.Equal(int64(200), suite.client.ZCard(suite.ctx, keyPrefix+"10.0.0.1").Val())
}

func (suite *SlidingWindowIntegrationTestSuite) TestExpiry() {
	sw := NewSlidingWindow(suite.client, 1, 500*time.Millisecond)

	ok, err := sw.Allow(suite.ctx, "10.0.0.2")
	suite.NoError(err)
	suite.True(ok)

	ok, err = sw.Allow(suite.ctx, "10.0.0.2")
	suite.NoError(err)
	suite.False(ok)

	suite.Eventually(func() bool {
		ok, err := sw.Allow(suite.ctx, "10.0.0.2")
		return err == nil && ok
	}, 3*time.Second, 100*time.Millisecond)
}

func TestSlidingWindowIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(SlidingWindowIntegrationTestSuite))
}
