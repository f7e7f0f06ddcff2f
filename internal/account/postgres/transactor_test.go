// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/pkg/errutil"
)

func TestTransactor_InTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		repo := NewAccountRepository(mock)
		err := NewTransactor(mock).InTransaction(ctx, func(txCtx context.Context) error {
			return repo.Create(txCtx, &account.Account{ID: ulid.Make(), Username: "ash", CreatedAt: time.Now()})
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewTransactor(mock).InTransaction(ctx, func(context.Context) error {
			return errors.New("force rollback")
		})
		require.EqualError(t, err, "force rollback")
	})

	t.Run("begin failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := NewTransactor(mock).InTransaction(ctx, func(context.Context) error {
			called = true
			return nil
		})
		errutil.AssertErrorCode(t, err, "TX_BEGIN_FAILED")
		assert.False(t, called)
	})

	t.Run("commit violation stays matchable", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: account.UsernameConstraint,
		})

		err := NewTransactor(mock).InTransaction(ctx, func(context.Context) error { return nil })
		errutil.AssertErrorCode(t, err, "TX_COMMIT_FAILED")
		assert.True(t, account.IsUsernameViolation(err))
	})
}

func TestConn(t *testing.T) {
	mock := newMockPool(t)
	assert.Equal(t, querier(mock), conn(context.Background(), mock))
}
