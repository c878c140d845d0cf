package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/service"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type authMiddlewareFixture struct {
	auth  *service.AuthService
	users *testutil.MockUserRepository
	orgs  *testutil.MockOrganizationRepository
	mw    *AuthMiddleware
}

func newAuthMiddlewareFixture(t *testing.T) *authMiddlewareFixture {
	t.Helper()
	users := testutil.NewMockUserRepository()
	orgs := testutil.NewMockOrganizationRepository()
	auth := service.NewAuthService(users, testutil.NewMockTokenStore(), "test-secret", 15*time.Minute, 7*24*time.Hour)
	return &authMiddlewareFixture{
		auth:  auth,
		users: users,
		orgs:  orgs,
		mw:    NewAuthMiddleware(auth, orgs),
	}
}

func (f *authMiddlewareFixture) register(t *testing.T, username string) (*domain.User, *service.TokenPair) {
	t.Helper()
	user, pair, err := f.auth.Register(service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Str0ngEnough",
	})
	require.NoError(t, err)
	return user, pair
}

func (f *authMiddlewareFixture) do(t *testing.T, authHeader string) (*httptest.ResponseRecorder, domain.DataContext, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var dc domain.DataContext
	var ok bool
	handler := f.mw.Authenticate()(func(c echo.Context) error {
		dc, ok = GetDataContext(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, dc, ok
}

func TestAuthenticatePersonalContext(t *testing.T) {
	f := newAuthMiddlewareFixture(t)
	user, pair := f.register(t, "dana")

	rec, dc, ok := f.do(t, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, user.ID, dc.UserID)
	assert.False(t, dc.IsOrgContext())
}

func TestAuthenticateOrgContext(t *testing.T) {
	f := newAuthMiddlewareFixture(t)
	user, pair := f.register(t, "dana")

	org, err := f.orgs.Create(
		&domain.Organization{Name: "Acme", Slug: "acme", OwnerID: user.ID, IsActive: true},
		&domain.OrgMember{UserID: user.ID, Role: domain.RoleOwner, IsActive: true},
	)
	require.NoError(t, err)
	require.NoError(t, f.users.SetCurrentOrganization(user.ID, &org.ID))

	rec, dc, ok := f.do(t, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	require.True(t, dc.IsOrgContext())
	assert.Equal(t, org.ID, *dc.OrganizationID)
	assert.Equal(t, domain.RoleOwner, dc.Role)
}

func TestAuthenticateStaleOrgPointerFallsBackToPersonal(t *testing.T) {
	f := newAuthMiddlewareFixture(t)
	user, pair := f.register(t, "dana")
	owner, _ := f.register(t, "owner")

	org, err := f.orgs.Create(
		&domain.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID, IsActive: true},
		&domain.OrgMember{UserID: owner.ID, Role: domain.RoleOwner, IsActive: true},
	)
	require.NoError(t, err)

	// Current organization points at an org the user is not a member of
	require.NoError(t, f.users.SetCurrentOrganization(user.ID, &org.ID))

	rec, dc, ok := f.do(t, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, user.ID, dc.UserID)
	assert.False(t, dc.IsOrgContext())
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	f := newAuthMiddlewareFixture(t)
	_, pair := f.register(t, "dana")

	for name, header := range map[string]string{
		"missing header": "",
		"no bearer":      pair.AccessToken,
		"garbage token":  "Bearer not-a-token",
		"refresh token":  "Bearer " + pair.RefreshToken,
	} {
		rec, _, ok := f.do(t, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.False(t, ok, name)
	}
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	f := newAuthMiddlewareFixture(t)
	user, pair := f.register(t, "dana")
	user.IsActive = false

	rec, _, ok := f.do(t, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}
