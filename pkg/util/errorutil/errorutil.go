// Package errorutil carries the error taxonomy the admin API renders.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewUnavailable(message string, err error) error {
	de := NewDomainError("UNAVAILABLE", message, http.StatusServiceUnavailable, nil)
	de.Err = err
	return de
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Store sentinels map
// to their HTTP equivalents; everything else is an internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var mapped *DomainError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		mapped = NewNotFound("resource", nil).(*DomainError)
	case errors.Is(err, repository.ErrInvalidArgument):
		mapped = NewValidationError("invalid argument", nil).(*DomainError)
	default:
		mapped = NewInternalError(err).(*DomainError)
	}
	mapped.Err = err
	return mapped
}

func MapError(err error) error {
	return ToDomainError(err)
}
