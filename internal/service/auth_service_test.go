package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type authFixture struct {
	users   *testutil.MockUserRepository
	tokens  *testutil.MockTokenStore
	service *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  testutil.NewMockUserRepository(),
		tokens: testutil.NewMockTokenStore(),
	}
	f.service = NewAuthService(f.users, f.tokens, "test-secret", 15*time.Minute, 7*24*time.Hour)
	return f
}

func (f *authFixture) register(t *testing.T) (*domain.User, *TokenPair) {
	user, pair, err := f.service.Register(RegisterInput{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "Sufficient1",
	})
	require.NoError(t, err)
	return user, pair
}

func TestRegister_IssuesPair(t *testing.T) {
	f := newAuthFixture()
	user, pair := f.register(t)

	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Sufficient1", user.PasswordHash)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := f.service.ParseToken(context.Background(), pair.AccessToken, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture()
	f.register(t)

	_, _, err := f.service.Register(RegisterInput{Username: "dana", Email: "other@example.com", Password: "Sufficient1"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, _, err = f.service.Register(RegisterInput{Username: "other", Email: "dana@example.com", Password: "Sufficient1"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, _, err = f.service.Register(RegisterInput{Username: "weak", Email: "weak@example.com", Password: "alllower1"})
	assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)

	_, _, err = f.service.Register(RegisterInput{Username: "bademail", Email: "not-an-email", Password: "Sufficient1"})
	assert.ErrorIs(t, err, domain.ErrEmailInvalid)
}

func TestLogin_Credentials(t *testing.T) {
	f := newAuthFixture()
	user, _ := f.register(t)

	logged, pair, err := f.service.Login("dana", "Sufficient1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, pair.AccessToken)

	// Wrong password and unknown user read the same
	_, _, err = f.service.Login("dana", "Wrong1234")
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
	_, _, err = f.service.Login("nobody", "Sufficient1")
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	user.IsActive = false
	_, err = f.users.Update(user)
	require.NoError(t, err)
	_, _, err = f.service.Login("dana", "Sufficient1")
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestParseToken_TypeChecked(t *testing.T) {
	f := newAuthFixture()
	_, pair := f.register(t)
	ctx := context.Background()

	_, err := f.service.ParseToken(ctx, pair.RefreshToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = f.service.ParseToken(ctx, "not.a.token", domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// A token signed with a different secret is rejected
	other := NewAuthService(f.users, f.tokens, "other-secret", time.Minute, time.Hour)
	_, otherPair, err := other.Register(RegisterInput{Username: "eve", Email: "eve@example.com", Password: "Sufficient1"})
	require.NoError(t, err)
	_, err = f.service.ParseToken(ctx, otherPair.AccessToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture()
	_, pair := f.register(t)
	ctx := context.Background()

	fresh, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

	// The consumed refresh token is dead
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	// The rotated one works
	_, err = f.service.Refresh(ctx, fresh.RefreshToken)
	require.NoError(t, err)
}

func TestLogout_RevokesPair(t *testing.T) {
	f := newAuthFixture()
	_, pair := f.register(t)
	ctx := context.Background()

	f.service.Logout(ctx, pair.AccessToken, pair.RefreshToken)

	_, err := f.service.ParseToken(ctx, pair.AccessToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestParseToken_StoreOutageFailsOpen(t *testing.T) {
	f := newAuthFixture()
	_, pair := f.register(t)

	f.tokens.FailReads = true
	_, err := f.service.ParseToken(context.Background(), pair.AccessToken, domain.TokenAccess)
	assert.NoError(t, err)
}
