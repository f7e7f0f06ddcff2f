// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/pkg/errutil"
)

// Error codes returned by the HTTP layer itself. Domain errors reuse the
// account package codes.
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternalError = "INTERNAL_ERROR"
)

// APIError is the body of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse wraps an APIError.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// httpError is an error raised by the HTTP layer with a fixed status.
type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

func errInvalidBody(err error) error {
	return &httpError{http.StatusBadRequest, APIError{
		Code:    account.CodeInvalidInput,
		Message: "request body must be valid JSON: " + err.Error(),
	}}
}

func errUnauthorized(message string) error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: message}}
}

func errRateLimited() error {
	return &httpError{http.StatusTooManyRequests, APIError{
		Code:    CodeRateLimited,
		Message: "too many registrations from this address, try again later",
	}}
}

// toHTTPError maps err onto a status and body. Internal failures get a
// generic message.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, account.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{
			Code:    account.CodeInvalidInput,
			Message: err.Error(),
			Field:   account.FieldOf(err),
		}}
	case errors.Is(err, account.ErrNotFound):
		apiErr := APIError{Code: account.CodeNotFound, Message: "not found"}
		var nf *account.NotFoundError
		if errors.As(err, &nf) {
			apiErr.Message = nf.Error()
			apiErr.Field = nf.Resource
		}
		return &httpError{http.StatusNotFound, apiErr}
	case errors.Is(err, account.ErrExistingUsername):
		return &httpError{http.StatusConflict, APIError{
			Code:    account.CodeUsernameExists,
			Message: account.ErrExistingUsername.Error(),
			Field:   "username",
		}}
	case errors.Is(err, account.ErrGameDexTypeMismatch):
		return &httpError{http.StatusUnprocessableEntity, APIError{
			Code:    account.CodeGameDexMismatch,
			Message: account.ErrGameDexTypeMismatch.Error(),
		}}
	case errors.Is(err, account.ErrForbiddenAction):
		return &httpError{http.StatusForbidden, APIError{
			Code:    account.CodeForbiddenAction,
			Message: account.ErrForbiddenAction.Error(),
		}}
	case errors.Is(err, account.ErrHashingFailure):
		return &httpError{http.StatusInternalServerError, APIError{
			Code:    account.CodeHashingFailed,
			Message: "could not process password",
		}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{
			Code:    CodeInternalError,
			Message: "internal server error",
		}}
	}
}

// writeError writes err as JSON. Server-side failures are logged first.
func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	if he.status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, logger, "request failed", err)
	}
	writeJSON(w, he.status, ErrorResponse{Error: he.apiError})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
