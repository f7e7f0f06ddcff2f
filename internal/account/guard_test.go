// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/internal/account/mocks"
	"github.com/dextracker/dextracker/pkg/errutil"
)

func usernameViolation() error {
	return &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: account.UsernameConstraint,
		Message:        `duplicate key value violates unique constraint "users_username_lower_key"`,
	}
}

func TestUniquenessGuard_CheckPreexisting(t *testing.T) {
	ctx := context.Background()

	t.Run("free username passes", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		accounts.On("GetByUsername", ctx, "ash").Return(nil, account.ErrNotFound)

		err := account.NewUniquenessGuard(accounts).CheckPreexisting(ctx, "ash")
		require.NoError(t, err)
	})

	t.Run("taken username is rejected", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		accounts.On("GetByUsername", ctx, "ASH").Return(&account.Account{Username: "ash"}, nil)

		err := account.NewUniquenessGuard(accounts).CheckPreexisting(ctx, "ASH")
		require.ErrorIs(t, err, account.ErrExistingUsername)
		errutil.AssertErrorCode(t, err, account.CodeUsernameExists)
	})

	t.Run("lookup failure is surfaced", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		accounts.On("GetByUsername", ctx, "ash").Return(nil, errors.New("connection refused"))

		err := account.NewUniquenessGuard(accounts).CheckPreexisting(ctx, "ash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrExistingUsername)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUniquenessGuard_TranslateCommitError(t *testing.T) {
	guard := account.NewUniquenessGuard(mocks.NewMockAccountRepository(t))

	t.Run("username violation becomes existing username", func(t *testing.T) {
		err := guard.TranslateCommitError("ash", usernameViolation())
		require.ErrorIs(t, err, account.ErrExistingUsername)
		errutil.AssertErrorCode(t, err, account.CodeUsernameExists)
	})

	t.Run("wrapped username violation is found", func(t *testing.T) {
		wrapped := oops.Code("TX_COMMIT_FAILED").Wrap(usernameViolation())
		err := guard.TranslateCommitError("ash", wrapped)
		assert.ErrorIs(t, err, account.ErrExistingUsername)
	})

	t.Run("other unique constraint passes through", func(t *testing.T) {
		slugViolation := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "dexes_user_id_slug_key"}
		err := guard.TranslateCommitError("ash", slugViolation)
		assert.Same(t, slugViolation, err)
	})

	t.Run("other error passes through", func(t *testing.T) {
		fkViolation := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
		err := guard.TranslateCommitError("ash", fkViolation)
		assert.NotErrorIs(t, err, account.ErrExistingUsername)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, guard.TranslateCommitError("ash", nil))
	})
}
