package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorResponse is the uniform error envelope, matching the handler package.
type errorResponse struct {
	Detail string `json:"detail"`
}

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Detail: detail})
}
