// Package apperr holds the error kinds the domain packages report to callers.
// Callers match with errors.Is; details are attached by wrapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrNotFound           = errors.New("not found")
	ErrExpired            = errors.New("verification code expired")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUnauthorized       = errors.New("forbidden")
)

// Validation wraps ErrValidation with a caller-facing reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the name of the missing thing.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

var statuses = []struct {
	err    error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrExpired, http.StatusBadRequest},
	{ErrInvalidCode, http.StatusBadRequest},
	{ErrDuplicateUser, http.StatusConflict},
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrUnauthorized, http.StatusForbidden},
}

// Status maps an error to the HTTP status reported to callers.
// Unknown errors are server faults.
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
