package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

func rateLimitedRequest(t *testing.T, rl *RateLimiter, dc *domain.DataContext) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if dc != nil {
		c.Set(dataContextKey, *dc)
	}

	handler := RateLimitMiddleware(rl)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 3)
	defer rl.Stop()
	dc := domain.DataContext{UserID: uuid.New()}

	for i := 0; i < 3; i++ {
		rec := rateLimitedRequest(t, rl, &dc)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.NotEmpty(t, rateLimitedRequest(t, rl, &dc).Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiterWithConfig(1, 2)
	defer rl.Stop()
	dc := domain.DataContext{UserID: uuid.New()}

	assert.Equal(t, http.StatusOK, rateLimitedRequest(t, rl, &dc).Code)
	assert.Equal(t, http.StatusOK, rateLimitedRequest(t, rl, &dc).Code)

	rec := rateLimitedRequest(t, rl, &dc)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitIsPerUser(t *testing.T) {
	rl := NewRateLimiterWithConfig(1, 1)
	defer rl.Stop()
	first := domain.DataContext{UserID: uuid.New()}
	second := domain.DataContext{UserID: uuid.New()}

	assert.Equal(t, http.StatusOK, rateLimitedRequest(t, rl, &first).Code)
	assert.Equal(t, http.StatusTooManyRequests, rateLimitedRequest(t, rl, &first).Code)
	assert.Equal(t, http.StatusOK, rateLimitedRequest(t, rl, &second).Code)
}

func TestRateLimitSkipsUnauthenticated(t *testing.T) {
	rl := NewRateLimiterWithConfig(1, 1)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, rateLimitedRequest(t, rl, nil).Code)
	}
}

func TestSecurityHeadersBasic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SecurityHeaders()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, APIVersion, rec.Header().Get("X-API-Version"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
