package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// AuthService handles registration, login and the JWT token lifecycle
type AuthService struct {
	userRepo   domain.UserRepository
	tokens     domain.TokenStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, tokens domain.TokenStore, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenClaims is the JWT payload for both token types.
type TokenClaims struct {
	Type domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair issued together
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterInput holds the input for registering a user
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a user with a bcrypt password hash and signs them in
func (s *AuthService) Register(input RegisterInput) (*domain.User, *TokenPair, error) {
	user := &domain.User{
		Username: strings.TrimSpace(input.Username),
		Email:    strings.TrimSpace(input.Email),
		IsActive: true,
	}
	if err := user.Validate(); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, nil, err
	}
	if _, err := s.userRepo.GetByUsername(user.Username); err == nil {
		return nil, nil, domain.ErrUsernameTaken
	}
	if _, err := s.userRepo.GetByEmail(user.Email); err == nil {
		return nil, nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user.PasswordHash = string(hash)

	created, err := s.userRepo.Create(user)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issuePair(created.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("user_id", created.ID.String()).Msg("User registered")
	return created, pair, nil
}

// Login verifies credentials and issues a token pair. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(username, password string) (*domain.User, *TokenPair, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, nil, domain.ErrCredentialsInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrCredentialsInvalid
	}
	if !user.IsActive {
		return nil, nil, domain.ErrUserInactive
	}
	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the old token is revoked for its
// remaining lifetime and a fresh pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.ParseToken(ctx, refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	s.revokeClaims(ctx, claims)
	return s.issuePair(user.ID)
}

// Logout revokes both tokens of a pair for their remaining lifetimes.
// Revocation is best-effort; a store outage does not fail the request.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if claims, err := s.ParseToken(ctx, accessToken, domain.TokenAccess); err == nil {
		s.revokeClaims(ctx, claims)
	}
	if refreshToken == "" {
		return
	}
	if claims, err := s.ParseToken(ctx, refreshToken, domain.TokenRefresh); err == nil {
		s.revokeClaims(ctx, claims)
	}
}

// Me retrieves the authenticated user's account
func (s *AuthService) Me(userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(userID)
}

// ParseToken validates a signed token of the expected type and checks it
// against the revocation store. Store read failures fail open.
func (s *AuthService) ParseToken(ctx context.Context, tokenString string, expected domain.TokenType) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Type != expected {
		return nil, domain.ErrTokenInvalid
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Token store lookup failed, allowing token")
		return claims, nil
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) issuePair(userID uuid.UUID) (*TokenPair, error) {
	access, err := s.sign(userID, domain.TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, domain.TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) sign(userID uuid.UUID, tokenType domain.TokenType, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) revokeClaims(ctx context.Context, claims *TokenClaims) {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		log.Warn().Err(err).Msg("Failed to revoke token")
	}
}
