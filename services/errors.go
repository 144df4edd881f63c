package services

import (
	"errors"
	"net/http"
)

// Stable error codes surfaced to API clients.
const (
	CodeValidation           = "ValidationError"
	CodeNotFound             = "NotFound"
	CodeConflict             = "Conflict"
	CodeForbidden            = "Forbidden"
	CodeInvalidTransition    = "InvalidTransition"
	CodeInvalidAuthorConfig  = "InvalidAuthorConfiguration"
	CodePendingSuggestions   = "PendingSuggestions"
	CodeAlreadyResolved      = "AlreadyResolved"
	CodeInvalidStatusForType = "InvalidStatusForType"
)

// FieldError points at one offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the service-level error carrying a stable code, a human-readable
// message and optional field detail.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// E builds a service error.
func E(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// EFields builds a validation error with field detail.
func EFields(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// AsError unwraps err into a *Error if it carries one.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err is a service error with the given code.
func IsCode(err error, code string) bool {
	if se, ok := AsError(err); ok {
		return se.Code == code
	}
	return false
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidTransition, CodeInvalidAuthorConfig,
		CodePendingSuggestions, CodeAlreadyResolved, CodeInvalidStatusForType:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
