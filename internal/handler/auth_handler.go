package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the JSON request for user registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON request for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the JSON request for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the JSON request for logout
type LogoutRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the JSON response for register and login
type AuthResponse struct {
	User   *domain.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// Register creates a new user account
// @Summary Register a new user
// @Tags auth
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	user, tokens, err := h.authService.Register(service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			return NewConflictError(c, "Username is already taken")
		case errors.Is(err, domain.ErrEmailTaken):
			return NewConflictError(c, "Email is already taken")
		case errors.Is(err, domain.ErrEmailInvalid):
			return NewValidationError(c, "Invalid email address")
		case errors.Is(err, domain.ErrPasswordTooWeak):
			return NewValidationError(c, "Password does not meet the strength requirements")
		case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Invalid username")
		}
		log.Error().Err(err).Msg("Failed to register user")
		return NewInternalError(c, "Failed to register user")
	}

	return c.JSON(http.StatusCreated, AuthResponse{User: user, Tokens: tokens})
}

// Login authenticates a user by username and password
// @Summary Log in
// @Tags auth
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	user, tokens, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsInvalid) || errors.Is(err, domain.ErrUserInactive) {
			return NewUnauthorizedError(c, "Invalid credentials")
		}
		log.Error().Err(err).Msg("Failed to log in")
		return NewInternalError(c, "Failed to log in")
	}

	return c.JSON(http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// Refresh rotates a refresh token into a fresh token pair
// @Summary Refresh tokens
// @Tags auth
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	tokens, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrTokenRevoked) ||
			errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrUserInactive) {
			return NewUnauthorizedError(c, "Invalid refresh token")
		}
		log.Error().Err(err).Msg("Failed to refresh tokens")
		return NewInternalError(c, "Failed to refresh tokens")
	}

	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the presented token pair. Always succeeds.
// @Summary Log out
// @Tags auth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	h.authService.Logout(c.Request().Context(), req.AccessToken, req.RefreshToken)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user
// @Summary Get the current user
// @Tags auth
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	user, err := h.authService.Me(dc.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load current user")
		return NewInternalError(c, "Failed to load current user")
	}
	return c.JSON(http.StatusOK, user)
}
