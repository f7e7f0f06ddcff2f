// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to oops errors returned by this package.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUsernameExists   = "USERNAME_EXISTS"
	CodeGameDexMismatch  = "GAME_DEX_TYPE_MISMATCH"
	CodeForbiddenAction  = "FORBIDDEN_ACTION"
	CodeHashingFailed    = "HASHING_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeTokenSignFailed  = "TOKEN_SIGN_FAILED"
	CodeCreateFailed     = "ACCOUNT_CREATE_FAILED"
	CodeUpdateFailed     = "ACCOUNT_UPDATE_FAILED"
	CodeRefreshFailed    = "ACCOUNT_REFRESH_FAILED"
	CodeLookupFailed     = "ACCOUNT_LOOKUP_FAILED"
	CodeDependencyFailed = "ACCOUNT_DEPENDENCY_MISSING"
)

// Sentinel errors. Every error returned by Service wraps one of these when
// it belongs to the domain taxonomy.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a payload field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExistingUsername is returned when the username is already taken,
	// whether detected by the pre-check or by the storage constraint.
	ErrExistingUsername = errors.New("username already exists")

	// ErrGameDexTypeMismatch is returned when a game and dex type belong to
	// different game families.
	ErrGameDexTypeMismatch = errors.New("game and dex type do not belong to the same game family")

	// ErrForbiddenAction is returned when an update targets an account the
	// caller does not own, or one that does not exist.
	ErrForbiddenAction = errors.New("forbidden action")

	// ErrHashingFailure is returned when the password hash cannot be computed.
	ErrHashingFailure = errors.New("password hashing failed")
)

// NotFoundError reports a missing referenced resource ("game", "dex_type",
// "user"). It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// notFound builds the oops error returned for a missing resource.
func notFound(resource string) error {
	return oops.Code(CodeNotFound).
		With("resource", resource).
		Wrap(&NotFoundError{Resource: resource})
}

// invalidInput builds the oops error returned for a rejected payload field.
func invalidInput(field, format string, args ...any) error {
	return oops.Code(CodeInvalidInput).
		With("field", field).
		Wrapf(ErrInvalidInput, format, args...)
}

// forbidden builds the oops error returned when an update is not allowed.
func forbidden(action string) error {
	return oops.Code(CodeForbiddenAction).
		With("action", action).
		Wrapf(ErrForbiddenAction, "you are not allowed to perform this action: %s", action)
}

// existingUsername builds the oops error returned for a taken username.
func existingUsername(username string) error {
	return oops.Code(CodeUsernameExists).
		With("username", username).
		Wrap(ErrExistingUsername)
}

// FieldOf returns the offending field name of an ErrInvalidInput error, or
// "" if err carries none.
func FieldOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field
}
