package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"inventory-service/internal/models"
)

// Kind classifies the failures a request can end in
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidIdentifier
	KindNotFound
	KindDuplicateKey
	KindMethodNotAllowed
)

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidIdentifier:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateKey:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code for the kind
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindInvalidIdentifier:
		return "INVALID_IDENTIFIER"
	case KindNotFound:
		return "NOT_FOUND"
	case KindDuplicateKey:
		return "DUPLICATE_KEY"
	case KindMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is returned by every service operation that fails. Message is safe
// to show to callers; Err keeps the underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Fields  []models.FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError converts err into an *Error, treating anything unclassified as an
// internal failure.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err)
}

// Validation reports rejected input
func Validation(message string, fields []models.FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// InvalidIdentifier reports a malformed record identifier
func InvalidIdentifier(label string) *Error {
	return &Error{Kind: KindInvalidIdentifier, Message: fmt.Sprintf("Invalid %s ID", strings.ToLower(label))}
}

// NotFound reports a well-formed identifier that matches no record
func NotFound(label string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", label)}
}

// DuplicateKey reports a write rejected by a uniqueness constraint
func DuplicateKey(label, field string, err error) *Error {
	if field == "" {
		return &Error{Kind: KindDuplicateKey, Message: fmt.Sprintf("%s already exists", label), Err: err}
	}
	return &Error{
		Kind:    KindDuplicateKey,
		Message: fmt.Sprintf("%s with this %s already exists", label, field),
		Fields:  []models.FieldError{{Field: field, Message: fmt.Sprintf("%s must be unique", field)}},
		Err:     err,
	}
}

// MethodNotAllowed reports an HTTP verb the route does not serve
func MethodNotAllowed(method string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: fmt.Sprintf("Method %s not allowed", method)}
}

// Internal wraps an unexpected failure behind a generic message
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}
