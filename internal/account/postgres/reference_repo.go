// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/dextracker/dextracker/internal/account"
)

// GameFamily groups games and dex types that can be paired.
type GameFamily struct {
	ID         string
	Generation int
	Order      int
}

// ReferenceRepository implements account.ReferenceRepository and the inserts
// used to seed reference data.
type ReferenceRepository struct {
	pool Pool
}

// NewReferenceRepository creates a new PostgreSQL reference data repository.
func NewReferenceRepository(pool Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// GetGame retrieves a game by ID.
func (r *ReferenceRepository) GetGame(ctx context.Context, id string) (*account.Game, error) {
	var g account.Game
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, game_family_id, "order" FROM games WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.GameFamilyID, &g.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("GAME_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GAME_GET_FAILED").With("id", id).Wrap(err)
	}
	return &g, nil
}

// GetDexType retrieves a dex type by ID.
func (r *ReferenceRepository) GetDexType(ctx context.Context, id int) (*account.DexType, error) {
	var t account.DexType
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, game_family_id, "order" FROM dex_types WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.GameFamilyID, &t.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("DEX_TYPE_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DEX_TYPE_GET_FAILED").With("id", id).Wrap(err)
	}
	return &t, nil
}

// CreateGameFamily inserts a game family.
func (r *ReferenceRepository) CreateGameFamily(ctx context.Context, f GameFamily) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO game_families (id, generation, "order") VALUES ($1, $2, $3)`,
		f.ID, f.Generation, f.Order)
	if err != nil {
		return oops.Code("GAME_FAMILY_INSERT_FAILED").With("id", f.ID).Wrap(err)
	}
	return nil
}

// CreateGame inserts a game.
func (r *ReferenceRepository) CreateGame(ctx context.Context, g account.Game) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO games (id, name, game_family_id, "order") VALUES ($1, $2, $3, $4)`,
		g.ID, g.Name, g.GameFamilyID, g.Order)
	if err != nil {
		return oops.Code("GAME_INSERT_FAILED").With("id", g.ID).Wrap(err)
	}
	return nil
}

// CreateDexType inserts a dex type.
func (r *ReferenceRepository) CreateDexType(ctx context.Context, t account.DexType) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO dex_types (id, name, game_family_id, "order") VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.GameFamilyID, t.Order)
	if err != nil {
		return oops.Code("DEX_TYPE_INSERT_FAILED").With("id", t.ID).Wrap(err)
	}
	return nil
}
