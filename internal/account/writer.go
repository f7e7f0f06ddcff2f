// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Writer performs the account writes: atomic creation of an account with
// its first dex, and owner-scoped updates.
type Writer struct {
	accounts   AccountRepository
	transactor Transactor
}

// NewWriter creates a Writer.
func NewWriter(accounts AccountRepository, transactor Transactor) *Writer {
	return &Writer{accounts: accounts, transactor: transactor}
}

// CreateWithDex inserts the account and the dex in one transaction, then
// re-reads the account so related rows and defaults are populated.
func (w *Writer) CreateWithDex(ctx context.Context, acct *Account, dex *Dex) (*Account, error) {
	err := w.transactor.InTransaction(ctx, func(ctx context.Context) error {
		if err := w.accounts.Create(ctx, acct); err != nil {
			return err
		}
		dex.UserID = acct.ID
		return w.accounts.CreateDex(ctx, dex)
	})
	if err != nil {
		return nil, err
	}
	return w.refresh(ctx, acct.Username)
}

// UpdateOwned applies changes to the account named username, provided it
// belongs to ownerID. Zero matching rows yields ErrForbiddenAction.
func (w *Writer) UpdateOwned(ctx context.Context, username string, ownerID ulid.ULID, changes Changes) (*Account, error) {
	affected, err := w.accounts.UpdateOwned(ctx, username, ownerID, changes)
	if err != nil {
		return nil, oops.Code(CodeUpdateFailed).
			With("username", username).
			Wrap(err)
	}
	if affected == 0 {
		return nil, forbidden("updating this user")
	}
	return w.refresh(ctx, username)
}

func (w *Writer) refresh(ctx context.Context, username string) (*Account, error) {
	acct, err := w.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The row was written moments ago; a miss here is not a caller error.
			return nil, oops.Code(CodeRefreshFailed).
				With("username", username).
				Errorf("account vanished after write")
		}
		return nil, oops.Code(CodeRefreshFailed).
			With("username", username).
			Wrap(err)
	}
	return acct, nil
}
