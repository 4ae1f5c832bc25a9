// Package apperr holds the error taxonomy shared by services, stores and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage error")
)

// NotFound tags a missing entity, e.g. NotFound("post", id).
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Invalid tags malformed caller input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Storage wraps a backend failure so that errors.Is matches both ErrStorage and the cause.
// Errors that already carry a tag from this package are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Tagged(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Tagged reports whether err already carries one of the taxonomy sentinels.
func Tagged(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrStorage)
}

// HTTPStatus maps an error onto the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message is the user-facing text for err. Storage failures never leak their cause.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "You must be logged in to do that"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return "Something went wrong, please try again"
	}
}
