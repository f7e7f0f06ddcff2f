// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import "github.com/samber/oops"

// ValidateRelationship confirms that a resolved game and dex type belong to
// the same game family. A nil reference is reported as not found.
func ValidateRelationship(game *Game, dexType *DexType) error {
	if game == nil {
		return notFound("game")
	}
	if dexType == nil {
		return notFound("dex_type")
	}
	if game.GameFamilyID != dexType.GameFamilyID {
		return oops.Code(CodeGameDexMismatch).
			With("game", game.ID).
			With("game_family", game.GameFamilyID).
			With("dex_type", dexType.ID).
			With("dex_type_family", dexType.GameFamilyID).
			Wrap(ErrGameDexTypeMismatch)
	}
	return nil
}
