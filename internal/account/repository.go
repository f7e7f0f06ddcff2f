// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// AccountRepository manages account and dex persistence.
type AccountRepository interface {
	// GetByUsername retrieves an account (case-insensitive) with its dexes
	// and their games and dex types loaded. Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// Create inserts an account row. Participates in a transaction carried
	// by ctx.
	Create(ctx context.Context, account *Account) error

	// CreateDex inserts a dex row. Participates in a transaction carried by
	// ctx.
	CreateDex(ctx context.Context, dex *Dex) error

	// UpdateOwned applies changes to the account matching both username and
	// ownerID. Returns the number of rows affected.
	UpdateOwned(ctx context.Context, username string, ownerID ulid.ULID, changes Changes) (int64, error)
}

// ReferenceRepository reads games and dex types.
type ReferenceRepository interface {
	// GetGame returns ErrNotFound if the game does not exist.
	GetGame(ctx context.Context, id string) (*Game, error)

	// GetDexType returns ErrNotFound if the dex type does not exist.
	GetDexType(ctx context.Context, id int) (*DexType, error)
}

// Transactor runs fn inside a database transaction. If fn returns nil the
// transaction is committed, otherwise it is rolled back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenIssuer produces a signed token for an account.
type TokenIssuer interface {
	Issue(account *Account) (string, error)
}

// Recorder observes workflow outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordOperation(operation, outcome string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, float64) {}
