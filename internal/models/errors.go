package models

import "github.com/pkg/errors"

// Error kinds surfaced by the import record handlers. Wrap with context and
// test with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrNotFound            = errors.New("import record not found")
)
