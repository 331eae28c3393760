package apperrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation              Code = "VALIDATION"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeNotEditable             Code = "NOT_EDITABLE"
	CodeNotEligible             Code = "NOT_ELIGIBLE"
	CodePositionHasApplications Code = "POSITION_HAS_APPLICATIONS"
	CodeInvalidEvent            Code = "INVALID_EVENT"
	CodeWorkflowClosed          Code = "WORKFLOW_CLOSED"
	CodeInternal                Code = "INTERNAL"
)

// Error is the domain error type shared by the services.
type Error struct {
	Code    Code
	Message string
	// Details carries a structured payload for the caller, e.g. a validation result.
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so callers can compare against New(code, "").
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails creates a domain error carrying a structured payload.
func WithDetails(code Code, message string, details any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Wrap creates a domain error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code of a domain error, CodeInternal otherwise.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the status code the handlers respond with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotEditable, CodeNotEligible, CodePositionHasApplications:
		return http.StatusConflict
	case CodeInvalidTransition, CodeInvalidEvent, CodeWorkflowClosed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON error body returned by the HTTP handlers.
type Response struct {
	Error   string `json:"error"`
	Code    Code   `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ToResponse builds the error body for err. Internal errors hide their cause.
func ToResponse(err error) Response {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return Response{Error: appErr.Message, Code: appErr.Code, Details: appErr.Details}
	}
	return Response{Error: "internal server error", Code: CodeInternal}
}
