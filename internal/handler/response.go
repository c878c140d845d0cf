package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the uniform error envelope. Detail carries either a plain
// message or, for schema violations, a list of FieldError entries.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// FieldError locates a single schema violation in the request.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

const fieldErrorType = "value_error"

// NewSchemaError reports malformed request data as 422 with the locations
// that failed to parse. Violated business rules use NewValidationError.
func NewSchemaError(c echo.Context, fields []FieldError) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: fields})
}

// schemaError is shorthand for a single bad field.
func schemaError(c echo.Context, msg string, loc ...string) error {
	return NewSchemaError(c, []FieldError{{Loc: loc, Msg: msg, Type: fieldErrorType}})
}

// NewValidationError reports a violated business rule
func NewValidationError(c echo.Context, detail string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: detail})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Detail: detail})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: detail})
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, ErrorResponse{Detail: detail})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ErrorResponse{Detail: detail})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: detail})
}
