package middleware

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// dataContextKey is the echo context key for the request's DataContext
const dataContextKey = "dataContext"

// AuthMiddleware authenticates requests and builds the per-request
// DataContext. The organization context comes from the user's
// current_organization_id and is verified against a live membership on every
// request.
type AuthMiddleware struct {
	auth *service.AuthService
	orgs domain.OrganizationRepository
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(auth *service.AuthService, orgs domain.OrganizationRepository) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, orgs: orgs}
}

// Authenticate returns an Echo middleware that validates access tokens
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			claims, err := m.auth.ParseToken(c.Request().Context(), parts[1], domain.TokenAccess)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return unauthorizedError(c, "Invalid token subject")
			}

			user, err := m.auth.Me(userID)
			if err != nil || !user.IsActive {
				return unauthorizedError(c, "Account is not available")
			}

			dc := domain.DataContext{
				UserID:  user.ID,
				IsAdmin: user.IsAdmin || user.IsSuperAdmin,
			}

			// A stale pointer left behind by a removal degrades to the
			// personal space instead of locking the user out.
			if user.CurrentOrganizationID != nil {
				member, err := m.orgs.GetMember(*user.CurrentOrganizationID, user.ID)
				switch {
				case err == nil:
					dc.OrganizationID = user.CurrentOrganizationID
					dc.Role = member.Role
				case errors.Is(err, domain.ErrMemberNotFound):
					log.Debug().
						Str("user_id", user.ID.String()).
						Str("organization_id", user.CurrentOrganizationID.String()).
						Msg("Stale organization pointer, using personal context")
				default:
					return unauthorizedError(c, "Membership verification failed")
				}
			}

			c.Set(dataContextKey, dc)
			return next(c)
		}
	}
}

// GetDataContext extracts the DataContext built by Authenticate
func GetDataContext(c echo.Context) (domain.DataContext, bool) {
	dc, ok := c.Get(dataContextKey).(domain.DataContext)
	return dc, ok
}
