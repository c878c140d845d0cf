package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenInvalid = errors.New("token is invalid or expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenStore records revoked token IDs until their natural expiry. Lookups
// are best-effort: a store outage must not lock every user out.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
