// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// UsernameConstraint is the unique index guarding account usernames.
const UsernameConstraint = "users_username_lower_key"

// UniquenessGuard detects duplicate usernames. The pre-check gives a fast
// answer; TranslateCommitError covers the window between the pre-check and
// the commit, where a concurrent registration may claim the same name.
type UniquenessGuard struct {
	accounts AccountRepository
}

// NewUniquenessGuard creates a UniquenessGuard.
func NewUniquenessGuard(accounts AccountRepository) *UniquenessGuard {
	return &UniquenessGuard{accounts: accounts}
}

// CheckPreexisting returns ErrExistingUsername if an account with the
// username already exists.
func (g *UniquenessGuard) CheckPreexisting(ctx context.Context, username string) error {
	existing, err := g.accounts.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return oops.Code(CodeLookupFailed).
			With("operation", "check existing username").
			With("username", username).
			Wrap(err)
	}
	return existingUsername(existing.Username)
}

// TranslateCommitError maps a storage-layer unique violation on the
// username constraint to ErrExistingUsername. Other errors are returned
// unchanged.
func (g *UniquenessGuard) TranslateCommitError(username string, err error) error {
	if IsUsernameViolation(err) {
		return existingUsername(username)
	}
	return err
}

// IsUsernameViolation reports whether err is a unique violation raised by
// the username constraint.
func IsUsernameViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == UsernameConstraint
}
