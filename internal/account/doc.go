// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package account implements registration and self-service updates of
// DexTracker accounts.
//
// # Domain Types
//
//   - Account - a user's identity record, owner of one or more dexes
//   - Dex - a tracked collection scoped to a Game and a DexType
//   - Game, DexType - read-only reference data sharing a game family
//
// # Workflow
//
// Service.Create hashes the password, resolves the referenced game and dex
// type concurrently with the username pre-check, validates that the game
// and dex type belong to the same family, and writes the account and its
// first dex in a single transaction before issuing a token.
//
// Service.Update applies a partial patch to an account, scoped to the
// caller's own account ID. A missing account and an account owned by
// someone else both surface as ErrForbiddenAction.
//
// Persistence is provided by implementations of AccountRepository,
// ReferenceRepository and Transactor (see the postgres subpackage).
package account
