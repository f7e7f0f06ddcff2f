// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// Password validation constraints. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// MaxTitleLength is the longest dex title accepted, in characters.
const MaxTitleLength = 300

var (
	// usernameRegex matches usernames that start with a letter and contain
	// only letters, numbers, and underscores.
	usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

	friendCode3DSRegex    = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	friendCodeSwitchRegex = regexp.MustCompile(`^SW-\d{4}-\d{4}-\d{4}$`)
)

// Account represents a registered user.
type Account struct {
	ID               ulid.ULID
	Username         string
	PasswordHash     string
	FriendCode3DS    *string
	FriendCodeSwitch *string
	Referrer         *string
	LastIP           *string
	CreatedAt        time.Time
	ModifiedAt       time.Time
	Dexes            []Dex
}

// Dex is a tracked collection owned by an account.
type Dex struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	GameID     string
	DexTypeID  int
	Title      string
	Slug       string
	Shiny      bool
	CreatedAt  time.Time
	ModifiedAt time.Time

	// Game and DexType are populated by reads that load related rows.
	Game    *Game
	DexType *DexType
}

// Game is reference data. GameFamilyID groups compatible games and dex types.
type Game struct {
	ID           string
	Name         string
	GameFamilyID string
	Order        int
}

// DexType is reference data describing which Pokémon a dex tracks.
type DexType struct {
	ID           int
	Name         string
	GameFamilyID string
	Order        int
}

// CreateInput is the registration payload.
type CreateInput struct {
	Username         string
	Password         string
	FriendCode3DS    *string
	FriendCodeSwitch *string
	Referrer         *string
	Title            string
	Slug             string
	Shiny            bool
	GameID           string
	DexTypeID        int
	// LastIP is the client address the request originated from.
	LastIP string
}

// UpdatePatch is a partial account update. Nil fields are left unchanged;
// a pointer to "" clears an optional friend code.
type UpdatePatch struct {
	Password         *string
	FriendCode3DS    *string
	FriendCodeSwitch *string
}

// Changes is the persisted form of an UpdatePatch: the password has already
// been hashed.
type Changes struct {
	PasswordHash     *string
	FriendCode3DS    *string
	FriendCodeSwitch *string
	ModifiedAt       time.Time
}

// ValidateUsername validates a username against rules.
func ValidateUsername(username string) error {
	if username == "" {
		return invalidInput("username", "username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return invalidInput("username", "username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return invalidInput("username", "username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return invalidInput("username",
			"username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidatePassword validates plaintext password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalidInput("password", "password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return invalidInput("password", "password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateFriendCodes checks optional friend codes. Empty strings are
// accepted and mean "clear".
func ValidateFriendCodes(fc3ds, fcSwitch *string) error {
	if fc3ds != nil && *fc3ds != "" && !friendCode3DSRegex.MatchString(*fc3ds) {
		return invalidInput("friend_code_3ds", "friend_code_3ds must be in the format 1234-1234-1234")
	}
	if fcSwitch != nil && *fcSwitch != "" && !friendCodeSwitchRegex.MatchString(*fcSwitch) {
		return invalidInput("friend_code_switch", "friend_code_switch must be in the format SW-1234-1234-1234")
	}
	return nil
}

// Validate checks every field of a registration payload except the
// references, which are resolved against storage.
func (in *CreateInput) Validate() error {
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := ValidateFriendCodes(in.FriendCode3DS, in.FriendCodeSwitch); err != nil {
		return err
	}
	if in.Title == "" {
		return invalidInput("title", "title cannot be empty")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return invalidInput("title", "title must be at most %d characters", MaxTitleLength)
	}
	if in.Slug != "" && !IsValidSlug(in.Slug) {
		return invalidInput("slug", "slug must contain only lowercase letters, numbers, and single dashes")
	}
	if in.GameID == "" {
		return invalidInput("game", "game is required")
	}
	if in.DexTypeID <= 0 {
		return invalidInput("dex_type", "dex_type is required")
	}
	return nil
}

// Validate checks the fields present in the patch.
func (p *UpdatePatch) Validate() error {
	if p.Password != nil {
		if err := ValidatePassword(*p.Password); err != nil {
			return err
		}
	}
	return ValidateFriendCodes(p.FriendCode3DS, p.FriendCodeSwitch)
}

// emptyToNil maps a pointer to "" to nil so optional columns store NULL.
func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
