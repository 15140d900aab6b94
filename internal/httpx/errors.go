package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"ploxora/internal/errs"
)

// Business error codes
const (
	CodeSuccess = 0

	// Authentication/Authorization errors (1000-1099)
	CodeUnauthorized = 1001 // Not logged in / credential missing
	CodeForbidden    = 1004 // No permission
	CodeAuthFailed   = 1005 // Bad credentials, revoked session or banned account

	// Parameter errors (2000-2099)
	CodeParamMissing  = 2001 // Parameter missing
	CodeParamInvalid  = 2002 // Parameter format error
	CodeInvalidAction = 2003 // Unsupported container action

	// Resource/Business errors (3000-3999)
	CodeNotFound              = 3001 // Resource not found
	CodeAlreadyExists         = 3002 // Resource already exists
	CodeStateConflict         = 3003 // Current state does not allow operation
	CodeAllocationUnavailable = 3004 // Requested port allocation missing or in use

	// System errors (5000-5999)
	CodeInternalError     = 5001 // Internal service error
	CodeNodeRequestFailed = 5003 // Node agent unreachable or answered an error
	CodeDeployFailed      = 5004 // Node agent refused or failed a deploy
)

// AppError represents an application error with HTTP status and business code
type AppError struct {
	HTTPStatus int    // HTTP status code
	Code       int    // Business error code
	Message    string // User-facing error message
	Err        error  // Internal error (for logging only, not returned to client)
	Data       any    // Additional data (for detailed error information)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, message=%s, err=%v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Unwrap exposes the internal error to errors.Is
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(httpStatus, code int, message string, err error) *AppError {
	return &AppError{
		HTTPStatus: httpStatus,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// ErrUnauthorized creates a 401 unauthorized error
func ErrUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, orDefault(message, "unauthorized"), nil)
}

// ErrForbidden creates a 403 forbidden error
func ErrForbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, orDefault(message, "forbidden"), nil)
}

// ErrParamMissing creates a 400 parameter missing error
func ErrParamMissing(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeParamMissing, orDefault(message, "parameter missing"), nil)
}

// ErrParamInvalid creates a 400 parameter invalid error
func ErrParamInvalid(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeParamInvalid, orDefault(message, "parameter format error"), nil)
}

// ErrNotFound creates a 404 not found error
func ErrNotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, orDefault(message, "resource not found"), nil)
}

// ErrStateConflict creates a 409 state conflict error
func ErrStateConflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeStateConflict, orDefault(message, "current state does not allow operation"), nil)
}

// ErrInternalError creates a 500 internal error
func ErrInternalError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, orDefault(message, "internal error"), err)
}

// sentinelMapping maps a domain error to its HTTP status and code. Node
// failures keep the cause so FailErr logs it.
var sentinelMapping = []struct {
	target    error
	status    int
	code      int
	keepCause bool
}{
	{errs.ErrNotFound, http.StatusNotFound, CodeNotFound, false},
	{errs.ErrValidation, http.StatusBadRequest, CodeParamInvalid, false},
	{errs.ErrInvalidAction, http.StatusBadRequest, CodeInvalidAction, false},
	{errs.ErrAllocationUnavailable, http.StatusConflict, CodeAllocationUnavailable, false},
	{errs.ErrConflict, http.StatusConflict, CodeAlreadyExists, false},
	{errs.ErrAccessDenied, http.StatusForbidden, CodeForbidden, false},
	{errs.ErrAuthFailed, http.StatusUnauthorized, CodeAuthFailed, false},
	{errs.ErrDeployFailed, http.StatusBadGateway, CodeDeployFailed, true},
	{errs.ErrNodeRequestFailed, http.StatusBadGateway, CodeNodeRequestFailed, true},
}

// FromError converts an error returned by a service into an AppError.
// AppErrors pass through unchanged; domain sentinels from package errs map to
// their HTTP equivalents; anything else is an internal error.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range sentinelMapping {
		if !errors.Is(err, m.target) {
			continue
		}
		var cause error
		if m.keepCause {
			cause = err
		}
		return NewAppError(m.status, m.code, err.Error(), cause)
	}
	return ErrInternalError("", err)
}
