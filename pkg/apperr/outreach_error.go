package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered in the "code" field of error bodies.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeMissingField     = "MISSING_FIELD"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeExternalError    = "EXTERNAL_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError is an error that knows its HTTP status and client-facing message.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message string, cause error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Details: details, Err: cause}
}

func BadRequest(message string) *AppError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil, nil)
}

// MissingFields reports absent required body fields. message is shown to the
// user verbatim.
func MissingFields(message string, fields ...string) *AppError {
	return newError(CodeMissingField, http.StatusBadRequest, message, nil, map[string]any{"fields": fields})
}

// NotFound renders as "<resource> not found".
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found", nil, nil)
}

// DatabaseError and ExternalError keep the upstream message; the UI surfaces it as-is.
func DatabaseError(err error) *AppError {
	return newError(CodeDatabaseError, http.StatusInternalServerError, err.Error(), err, nil)
}

func ExternalError(service string, err error) *AppError {
	return newError(CodeExternalError, http.StatusInternalServerError, err.Error(), err, map[string]any{"service": service})
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the status for err, 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
