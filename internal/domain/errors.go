package domain

import "errors"

// Domain errors shared across entities. Entity-specific sentinels live next
// to their entity definitions.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")
	ErrNameRequired  = errors.New("name is required")
	ErrNameTooLong   = errors.New("name exceeds maximum length")
)

// Pagination limits applied to every list endpoint.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Validation constants
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 500
	MaxBatchSize         = 500
)
