package amo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// tokenRetention keeps a token readable past its validity window so the
// decision page can say "expired" instead of "not found".
const tokenRetention = 30 * 24 * time.Hour

// RedisTokenStore keeps validation tokens in Redis. The token body and its
// consumption mark live under separate keys; consumption is a SET NX, so the
// first decision wins and every later one reads as already used.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

type redisToken struct {
	Value        string    `json:"value"`
	ValidationID string    `json:"validation_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func tokenKey(value string) string    { return "amo:token:" + value }
func consumedKey(value string) string { return "amo:token:" + value + ":consumed" }

func (s *RedisTokenStore) Get(ctx context.Context, value string) (*Token, error) {
	raw, err := s.client.Get(ctx, tokenKey(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	var stored redisToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	validationID, err := id.ParseValidationID(stored.ValidationID)
	if err != nil {
		return nil, fmt.Errorf("corrupt validation id: %w", err)
	}
	token := &Token{
		Value:        stored.Value,
		ValidationID: validationID,
		CreatedAt:    stored.CreatedAt,
		ExpiresAt:    stored.ExpiresAt,
	}

	consumedAt, err := s.client.Get(ctx, consumedKey(value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return token, nil
		}
		return nil, fmt.Errorf("get token consumption: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, consumedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt consumption mark: %w", err)
	}
	token.ConsumedAt = &t
	return token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token *Token) error {
	raw, err := json.Marshal(redisToken{
		Value:        token.Value,
		ValidationID: token.ValidationID.String(),
		CreatedAt:    token.CreatedAt,
		ExpiresAt:    token.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt) + tokenRetention
	if err := s.client.Set(ctx, tokenKey(token.Value), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, value string) (*Token, error) {
	token, err := s.Get(ctx, value)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if token.ConsumedAt != nil {
		return nil, sentinel.ErrAlreadyUsed
	}
	if token.Expired(now) {
		return nil, sentinel.ErrExpired
	}

	ttl := time.Until(token.ExpiresAt) + tokenRetention
	set, err := s.client.SetNX(ctx, consumedKey(value), now.Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if !set {
		return nil, sentinel.ErrAlreadyUsed
	}
	token.ConsumedAt = &now
	return token, nil
}
