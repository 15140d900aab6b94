// Package errs defines the domain error taxonomy shared by services and handlers.
// Services wrap these sentinels with fmt.Errorf("...: %w", ...) and the HTTP
// boundary (httpx.FromError) maps them to status codes.
package errs

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation error")
	ErrAllocationUnavailable = errors.New("allocation unavailable")
	ErrAccessDenied          = errors.New("access denied")
	ErrDeployFailed          = errors.New("deploy failed")
	ErrNodeRequestFailed     = errors.New("node request failed")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrInvalidAction         = errors.New("invalid action")
	ErrConflict              = errors.New("conflict")
)
