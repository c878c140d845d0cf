package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

// TokenStore implements domain.TokenStore using Redis. Revocations expire on
// their own once the underlying token would have expired anyway.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Revoke marks a token id as revoked for the token's remaining lifetime
func (s *TokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token id has been revoked
func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
