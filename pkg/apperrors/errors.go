package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrNoMatch              = errors.New("no table or metric matched the query")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrInvalidInput         = errors.New("invalid input")
)
