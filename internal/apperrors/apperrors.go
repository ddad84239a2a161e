// Package apperrors defines the error taxonomy shared by services and handlers.
// Services return *AppError values; handlers map them to HTTP responses.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// Internal is the catch-all for unexpected storage or runtime faults.
	Internal Kind = iota
	// Validation means the caller sent input that failed field-level checks.
	Validation
	// Authentication means the caller is not (or no longer) authenticated.
	Authentication
	// Forbidden means the caller is authenticated but does not own the resource.
	Forbidden
	// NotFound means the addressed resource does not exist.
	NotFound
	// Conflict means the resource already exists (duplicate user, duplicate review).
	Conflict
	// Configuration means the server is misconfigured (e.g. no signing secret).
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Configuration:
		return "configuration"
	default:
		return "internal"
	}
}

// AppError is the error type returned by the service layer.
type AppError struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status.
// Conflicts are reported as 400 to match the API's published contract.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to API clients.
// Internal and configuration faults never leak their detail.
func (e *AppError) PublicMessage() string {
	switch e.Kind {
	case Internal:
		if e.Message == "" {
			return "Internal server error"
		}
		return e.Message
	case Configuration:
		return "Server configuration error"
	default:
		return e.Message
	}
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NewValidation builds a validation error. fields may be nil.
func NewValidation(message string, fields map[string]string) *AppError {
	return &AppError{Kind: Validation, Message: message, Fields: fields}
}

func NewAuthentication(message string, err error) *AppError {
	return New(Authentication, message, err)
}

func NewForbidden(message string) *AppError {
	return New(Forbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewConflict(message string, err error) *AppError {
	return New(Conflict, message, err)
}

func NewConfiguration(message string, err error) *AppError {
	return New(Configuration, message, err)
}

func NewInternal(message string, err error) *AppError {
	return New(Internal, message, err)
}

// From extracts an *AppError from err's chain. Errors that are not
// AppErrors are wrapped as Internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("", err)
}

// KindOf reports the kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

func IsValidation(err error) bool     { return is(err, Validation) }
func IsAuthentication(err error) bool { return is(err, Authentication) }
func IsForbidden(err error) bool      { return is(err, Forbidden) }
func IsNotFound(err error) bool       { return is(err, NotFound) }
func IsConflict(err error) bool       { return is(err, Conflict) }
func IsConfiguration(err error) bool  { return is(err, Configuration) }

func is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
