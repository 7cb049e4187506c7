package service

import "errors"

// Validation errors for request input. Store-level rules live in the
// database package; these cover shape problems caught before any query.
var (
	ErrInvalidDate      = errors.New("invalid session date")
	ErrInvalidTime      = errors.New("invalid session time")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrMissingName      = errors.New("first name is required")
	ErrInvalidReference = errors.New("invalid payment reference")
)
