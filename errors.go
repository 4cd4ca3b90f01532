package main

import (
	"net/http"

	"github.com/pkg/errors"
)

// Error kinds. Every failure returned by the auth and message operations
// matches exactly one of these with errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("already exists")
	ErrAuth       = errors.New("not authenticated")
	ErrAuthz      = errors.New("not authorized")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// appError is what operations hand back to the router: a kind, the text the
// user gets to see, and the underlying cause if there was one.
type appError struct {
	kind  error
	text  string
	cause error
}

func (e *appError) Error() string {
	if e.cause != nil {
		return e.text + ": " + e.cause.Error()
	}
	return e.text
}

func (e *appError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func newError(kind error, text string) error {
	return &appError{kind: kind, text: text}
}

func storageError(text string, cause error) error {
	return &appError{kind: ErrStorage, text: text, cause: cause}
}

// userText returns the plain-text message shown for err.
func userText(err error) string {
	var ae *appError
	if errors.As(err, &ae) {
		return ae.text
	}
	return "Internal Server Error"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthz):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
