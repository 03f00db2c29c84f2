package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrValidation        = errors.New("validation error")
)
