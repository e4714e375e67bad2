package errors

import (
	stderrors "errors"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeMalformedInput  ErrorType = "MALFORMED_INPUT"
	ErrorTypeProviderFailure ErrorType = "PROVIDER_FAILURE"
	ErrorTypeIO              ErrorType = "IO"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MalformedInput reports unparsable JSON or a value that is not a JSON tree.
func MalformedInput(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeMalformedInput,
		Message: "malformed input",
		Path:    path,
		Code:    http.StatusUnprocessableEntity,
		Err:     err,
	}
}

// ProviderFailure reports a failed call to a translation provider.
func ProviderFailure(provider string, err error) *Error {
	return &Error{
		Type:    ErrorTypeProviderFailure,
		Message: "translation provider " + provider + " failed",
		Code:    http.StatusBadGateway,
		Err:     err,
	}
}

func IOFailure(op, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: op + " failed",
		Path:    path,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	if e.Type == t {
		return true
	}
	return IsType(e.Err, t)
}

// StatusCode maps err to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
