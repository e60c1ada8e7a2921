package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return formatFieldErrors("validation", e.Errors)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// AuthorizationError is returned when the session role does not permit an
// operation. It has the same shape as ValidationError so callers can render
// both inline at the point of the attempted mutation.
type AuthorizationError struct {
	Errors []FieldError
}

func (e *AuthorizationError) Error() string {
	return formatFieldErrors("authorization", e.Errors)
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// NewAuthorizationError creates an AuthorizationError for a single field.
func NewAuthorizationError(field, message string) *AuthorizationError {
	return &AuthorizationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// FieldErrors extracts the field list from a ValidationError or
// AuthorizationError anywhere in err's chain. Returns nil otherwise.
func FieldErrors(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	var ae *AuthorizationError
	if errors.As(err, &ae) {
		return ae.Errors
	}
	return nil
}

func formatFieldErrors(kind string, errs []FieldError) string {
	if len(errs) == 1 {
		return fmt.Sprintf("%s: %s: %s", kind, errs[0].Field, errs[0].Message)
	}
	return fmt.Sprintf("%s: %d errors", kind, len(errs))
}

// Gateway error codes.
const (
	GatewayCodeNotFound     = "not_found"
	GatewayCodeConflict     = "conflict"
	GatewayCodeInvalid      = "invalid"
	GatewayCodeUnknownTable = "unknown_table"
	GatewayCodeUnavailable  = "unavailable"
	GatewayCodeInternal     = "internal"
)

// GatewayError is returned by every remote data gateway operation.
type GatewayError struct {
	Message string
	Code    string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGatewayError builds a GatewayError. Codes that correspond to a domain
// sentinel wrap it so errors.Is works across layers.
func NewGatewayError(code, message string, cause error) *GatewayError {
	if cause == nil {
		switch code {
		case GatewayCodeNotFound:
			cause = ErrNotFound
		case GatewayCodeConflict:
			cause = ErrAlreadyExists
		case GatewayCodeInvalid:
			cause = ErrValidation
		}
	}
	return &GatewayError{Message: message, Code: code, Err: cause}
}
