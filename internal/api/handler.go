// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/dextracker/dextracker/internal/account"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

type createRequest struct {
	Username         string  `json:"username"`
	Password         string  `json:"password"`
	FriendCode3DS    *string `json:"friend_code_3ds"`
	FriendCodeSwitch *string `json:"friend_code_switch"`
	Referrer         *string `json:"referrer"`
	Title            string  `json:"title"`
	Slug             string  `json:"slug"`
	Shiny            bool    `json:"shiny"`
	Game             string  `json:"game"`
	DexType          int     `json:"dex_type"`
}

type updateRequest struct {
	Password         *string `json:"password"`
	FriendCode3DS    *string `json:"friend_code_3ds"`
	FriendCodeSwitch *string `json:"friend_code_switch"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type gameResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	GameFamilyID string `json:"game_family_id"`
}

type dexTypeResponse struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	GameFamilyID string `json:"game_family_id"`
}

type dexResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Slug         string           `json:"slug"`
	Shiny        bool             `json:"shiny"`
	Game         *gameResponse    `json:"game,omitempty"`
	DexType      *dexTypeResponse `json:"dex_type,omitempty"`
	DateCreated  time.Time        `json:"date_created"`
	DateModified time.Time        `json:"date_modified"`
}

type userResponse struct {
	ID               string        `json:"id"`
	Username         string        `json:"username"`
	FriendCode3DS    *string       `json:"friend_code_3ds"`
	FriendCodeSwitch *string       `json:"friend_code_switch"`
	Dexes            []dexResponse `json:"dexes"`
	DateCreated      time.Time     `json:"date_created"`
	DateModified     time.Time     `json:"date_modified"`
}

// userFromAccount renders the public view of an account. The password hash,
// referrer and last IP are never exposed.
func userFromAccount(acct *account.Account) userResponse {
	dexes := make([]dexResponse, 0, len(acct.Dexes))
	for _, d := range acct.Dexes {
		dr := dexResponse{
			ID:           d.ID.String(),
			Title:        d.Title,
			Slug:         d.Slug,
			Shiny:        d.Shiny,
			DateCreated:  d.CreatedAt,
			DateModified: d.ModifiedAt,
		}
		if d.Game != nil {
			dr.Game = &gameResponse{ID: d.Game.ID, Name: d.Game.Name, GameFamilyID: d.Game.GameFamilyID}
		}
		if d.DexType != nil {
			dr.DexType = &dexTypeResponse{ID: d.DexType.ID, Name: d.DexType.Name, GameFamilyID: d.DexType.GameFamilyID}
		}
		dexes = append(dexes, dr)
	}
	return userResponse{
		ID:               acct.ID.String(),
		Username:         acct.Username,
		FriendCode3DS:    acct.FriendCode3DS,
		FriendCodeSwitch: acct.FriendCodeSwitch,
		Dexes:            dexes,
		DateCreated:      acct.CreatedAt,
		DateModified:     acct.ModifiedAt,
	}
}

type handler struct {
	accounts AccountService
	logger   *slog.Logger
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return errInvalidBody(err)
	}
	return nil
}

// create handles POST /users.
func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	res, err := h.accounts.Create(r.Context(), account.CreateInput{
		Username:         req.Username,
		Password:         req.Password,
		FriendCode3DS:    req.FriendCode3DS,
		FriendCodeSwitch: req.FriendCodeSwitch,
		Referrer:         req.Referrer,
		Title:            req.Title,
		Slug:             req.Slug,
		Shiny:            req.Shiny,
		GameID:           req.Game,
		DexTypeID:        req.DexType,
		LastIP:           ClientIP(r),
	})
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: res.Token})
}

// update handles POST /users/{username}.
func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r.Context())
	if !ok {
		writeError(r.Context(), h.logger, w, oops.Errorf("update reached without an authenticated caller"))
		return
	}

	var req updateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	res, err := h.accounts.Update(r.Context(), mux.Vars(r)["username"], caller, account.UpdatePatch{
		Password:         req.Password,
		FriendCode3DS:    req.FriendCode3DS,
		FriendCodeSwitch: req.FriendCodeSwitch,
	})
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: res.Token})
}

// get handles GET /users/{username}.
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.Get(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(r.Context(), h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromAccount(acct))
}
