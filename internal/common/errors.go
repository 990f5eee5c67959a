// Package common holds the error taxonomy shared by services and handlers.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// auth-specific errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidSession     = errors.New("invalid session")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// execution-specific errors
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrLanguageUnavailable = errors.New("language not available")
)

// UpstreamError is returned when the remote execution service answers with a
// non-success status. Body is kept for diagnostics.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error: %d %s", e.Service, e.StatusCode, e.Body)
}
