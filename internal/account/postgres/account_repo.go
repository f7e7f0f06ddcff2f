// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dextracker/dextracker/internal/account"
)

// AccountRepository implements account.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const selectUser = `
	SELECT id, username, password, friend_code_3ds, friend_code_switch,
	       referrer, last_ip, date_created, date_modified
	FROM users WHERE LOWER(username) = LOWER($1)`

const selectDexes = `
	SELECT d.id, d.user_id, d.game_id, d.dex_type_id, d.title, d.slug, d.shiny,
	       d.date_created, d.date_modified,
	       g.name, g.game_family_id, g."order",
	       t.name, t.game_family_id, t."order"
	FROM dexes d
	JOIN games g ON g.id = d.game_id
	JOIN dex_types t ON t.id = d.dex_type_id
	WHERE d.user_id = $1
	ORDER BY d.date_created, d.id`

// GetByUsername retrieves an account by username, ignoring case, with its
// dexes and their games and dex types.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*account.Account, error) {
	q := conn(ctx, r.pool)

	acct, err := scanAccount(q.QueryRow(ctx, selectUser, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("username", username).Wrap(err)
	}

	rows, err := q.Query(ctx, selectDexes, acct.ID.String())
	if err != nil {
		return nil, oops.Code("DEX_QUERY_FAILED").With("user_id", acct.ID.String()).Wrap(err)
	}
	defer rows.Close()

	acct.Dexes, err = scanDexes(rows)
	if err != nil {
		return nil, oops.With("user_id", acct.ID.String()).Wrap(err)
	}
	return acct, nil
}

// Create inserts an account row. Callers must validate the account first.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (id, username, password, friend_code_3ds, friend_code_switch,
		                   referrer, last_ip, date_created, date_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, acct.ID.String(), acct.Username, acct.PasswordHash, acct.FriendCode3DS, acct.FriendCodeSwitch,
		acct.Referrer, acct.LastIP, acct.CreatedAt, acct.ModifiedAt)
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").With("username", acct.Username).Wrap(err)
	}
	return nil
}

// CreateDex inserts a dex row.
func (r *AccountRepository) CreateDex(ctx context.Context, dex *account.Dex) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO dexes (id, user_id, game_id, dex_type_id, title, slug, shiny,
		                   date_created, date_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, dex.ID.String(), dex.UserID.String(), dex.GameID, dex.DexTypeID, dex.Title, dex.Slug, dex.Shiny,
		dex.CreatedAt, dex.ModifiedAt)
	if err != nil {
		return oops.Code("DEX_INSERT_FAILED").With("user_id", dex.UserID.String()).With("slug", dex.Slug).Wrap(err)
	}
	return nil
}

// UpdateOwned applies changes to the account matching both username and
// ownerID. date_modified is always written so an empty change set still
// reports whether the caller owns the row.
func (r *AccountRepository) UpdateOwned(ctx context.Context, username string, ownerID ulid.ULID, changes account.Changes) (int64, error) {
	sql, args := buildUpdate(username, ownerID, changes)
	tag, err := conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return 0, oops.Code("ACCOUNT_UPDATE_EXEC_FAILED").With("username", username).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func buildUpdate(username string, ownerID ulid.ULID, changes account.Changes) (string, []any) {
	args := []any{username, ownerID.String()}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.PasswordHash != nil {
		set("password", *changes.PasswordHash)
	}
	if changes.FriendCode3DS != nil {
		set("friend_code_3ds", nullable(*changes.FriendCode3DS))
	}
	if changes.FriendCodeSwitch != nil {
		set("friend_code_switch", nullable(*changes.FriendCodeSwitch))
	}
	set("date_modified", changes.ModifiedAt)

	return "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE LOWER(username) = LOWER($1) AND id = $2", args
}

// nullable maps "" to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acct account.Account
	var idStr string
	err := row.Scan(&idStr, &acct.Username, &acct.PasswordHash, &acct.FriendCode3DS, &acct.FriendCodeSwitch,
		&acct.Referrer, &acct.LastIP, &acct.CreatedAt, &acct.ModifiedAt)
	if err != nil {
		return nil, err
	}
	acct.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	return &acct, nil
}

func scanDexes(rows pgx.Rows) ([]account.Dex, error) {
	dexes := []account.Dex{}
	for rows.Next() {
		var d account.Dex
		var g account.Game
		var t account.DexType
		var idStr, userStr string
		err := rows.Scan(&idStr, &userStr, &d.GameID, &d.DexTypeID, &d.Title, &d.Slug, &d.Shiny,
			&d.CreatedAt, &d.ModifiedAt,
			&g.Name, &g.GameFamilyID, &g.Order,
			&t.Name, &t.GameFamilyID, &t.Order)
		if err != nil {
			return nil, oops.Code("DEX_SCAN_FAILED").Wrap(err)
		}
		if d.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("DEX_SCAN_FAILED").With("id", idStr).Wrap(err)
		}
		if d.UserID, err = ulid.Parse(userStr); err != nil {
			return nil, oops.Code("DEX_SCAN_FAILED").With("user_id", userStr).Wrap(err)
		}
		g.ID = d.GameID
		t.ID = d.DexTypeID
		d.Game = &g
		d.DexType = &t
		dexes = append(dexes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DEX_ITERATE_FAILED").Wrap(err)
	}
	return dexes, nil
}
