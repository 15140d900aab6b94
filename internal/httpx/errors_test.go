package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ploxora/internal/errs"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  ErrParamMissing("portRange is required"),
			want: "code=2001, message=portRange is required",
		},
		{
			name: "with cause",
			err:  ErrInternalError("failed to save node", errors.New("disk full")),
			want: "code=5001, message=failed to save node, err=disk full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructorDefaults(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   int
		msg    string
	}{
		{ErrUnauthorized(""), http.StatusUnauthorized, CodeUnauthorized, "unauthorized"},
		{ErrForbidden(""), http.StatusForbidden, CodeForbidden, "forbidden"},
		{ErrParamMissing(""), http.StatusBadRequest, CodeParamMissing, "parameter missing"},
		{ErrParamInvalid("bad port"), http.StatusBadRequest, CodeParamInvalid, "bad port"},
		{ErrNotFound(""), http.StatusNotFound, CodeNotFound, "resource not found"},
		{ErrStateConflict("health worker disabled"), http.StatusConflict, CodeStateConflict, "health worker disabled"},
		{ErrInternalError("", nil), http.StatusInternalServerError, CodeInternalError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status || tt.err.Code != tt.code || tt.err.Message != tt.msg {
				t.Errorf("got %d/%d/%q, want %d/%d/%q", tt.err.HTTPStatus, tt.err.Code, tt.err.Message, tt.status, tt.code, tt.msg)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantCause  bool
	}{
		{"not found", fmt.Errorf("node abc: %w", errs.ErrNotFound), http.StatusNotFound, CodeNotFound, false},
		{"validation", fmt.Errorf("bad range: %w", errs.ErrValidation), http.StatusBadRequest, CodeParamInvalid, false},
		{"invalid action", errs.ErrInvalidAction, http.StatusBadRequest, CodeInvalidAction, false},
		{"allocation", errs.ErrAllocationUnavailable, http.StatusConflict, CodeAllocationUnavailable, false},
		{"duplicate", fmt.Errorf("allocation 3000 already exists: %w", errs.ErrConflict), http.StatusConflict, CodeAlreadyExists, false},
		{"access denied", errs.ErrAccessDenied, http.StatusForbidden, CodeForbidden, false},
		{"auth failed", errs.ErrAuthFailed, http.StatusUnauthorized, CodeAuthFailed, false},
		{"deploy failed", fmt.Errorf("%w: status 500", errs.ErrDeployFailed), http.StatusBadGateway, CodeDeployFailed, true},
		{"node request", errs.ErrNodeRequestFailed, http.StatusBadGateway, CodeNodeRequestFailed, true},
		{"app error passthrough", ErrParamMissing("name required"), http.StatusBadRequest, CodeParamMissing, false},
		{"wrapped app error", fmt.Errorf("handler: %w", ErrForbidden("")), http.StatusForbidden, CodeForbidden, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", got.HTTPStatus, tt.wantStatus)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", got.Code, tt.wantCode)
			}
			if (got.Err != nil) != tt.wantCause {
				t.Errorf("cause kept = %v, want %v", got.Err != nil, tt.wantCause)
			}
		})
	}
}

func TestFromError_MessageCarriesContext(t *testing.T) {
	got := FromError(fmt.Errorf("server s-1: %w", errs.ErrNotFound))
	if got.Message != "server s-1: not found" {
		t.Errorf("unexpected message %q", got.Message)
	}
}
