//go:build integration

package amo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"renoflow/internal/amo"
	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/testutil/containers"
)

type RedisTokenStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *amo.RedisTokenStore
}

func TestRedisTokenStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTokenStoreSuite))
}

func (s *RedisTokenStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = amo.NewRedisTokenStore(s.redis.Client)
}

func (s *RedisTokenStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTokenStoreSuite) makeToken(expiresIn time.Duration) *amo.Token {
	now := time.Now().UTC()
	return &amo.Token{
		Value:        uuid.NewString(),
		ValidationID: id.NewValidationID(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiresIn),
	}
}

func (s *RedisTokenStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	token := s.makeToken(time.Hour)
	s.Require().NoError(s.store.Save(ctx, token))

	loaded, err := s.store.Get(ctx, token.Value)
	s.Require().NoError(err)
	s.Equal(token.ValidationID, loaded.ValidationID)
	s.Nil(loaded.ConsumedAt)

	_, err = s.store.Get(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisTokenStoreSuite) TestConsumeOnce() {
	ctx := context.Background()
	token := s.makeToken(time.Hour)
	s.Require().NoError(s.store.Save(ctx, token))

	consumed, err := s.store.Consume(ctx, token.Value)
	s.Require().NoError(err)
	s.Require().NotNil(consumed.ConsumedAt)

	_, err = s.store.Consume(ctx, token.Value)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	// The consumption mark survives a reread.
	loaded, err := s.store.Get(ctx, token.Value)
	s.Require().NoError(err)
	s.NotNil(loaded.ConsumedAt)
}

func (s *RedisTokenStoreSuite) TestConsumeExpired() {
	ctx := context.Background()
	token := s.makeToken(-time.Minute)
	s.Require().NoError(s.store.Save(ctx, token))

	_, err := s.store.Consume(ctx, token.Value)
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *RedisTokenStoreSuite) TestConcurrentConsumption() {
	ctx := context.Background()
	token := s.makeToken(time.Hour)
	s.Require().NoError(s.store.Save(ctx, token))

	const goroutines = 50
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(ctx, token.Value); err == nil {
				successCount.Add(1)
			} else {
				s.Require().True(errors.Is(err, sentinel.ErrAlreadyUsed))
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one consume should succeed")
}
