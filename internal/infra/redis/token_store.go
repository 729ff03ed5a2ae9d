package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps password reset tokens in Redis with an expiry.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Put(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(token), email, ttl).Err()
}

func (s *TokenStore) Get(ctx context.Context, token string) (string, bool, error) {
	email, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (s *TokenStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *TokenStore) key(token string) string {
	return "auth:reset:" + token
}
