// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package token signs and verifies account session tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dextracker/dextracker/internal/account"
)

// ErrInvalidToken is returned by Verify for any token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

// Claims is the payload of a session token.
type Claims struct {
	Username         string  `json:"username"`
	FriendCode3DS    *string `json:"friend_code_3ds,omitempty"`
	FriendCodeSwitch *string `json:"friend_code_switch,omitempty"`
	jwt.RegisteredClaims
}

// AccountID parses the subject as an account ID.
func (c *Claims) AccountID() (ulid.ULID, error) {
	return ulid.Parse(c.Subject)
}

// Config configures an Issuer.
type Config struct {
	Secret []byte
	Issuer string
	// TTL bounds token lifetime. Zero issues tokens without an expiry.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Issuer signs HS256 tokens and implements account.TokenIssuer.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer validates cfg and creates an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_length", MinSecretLength).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("TOKEN_TTL_INVALID").Errorf("token ttl must not be negative")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: cfg.Secret, issuer: cfg.Issuer, ttl: cfg.TTL, now: now}, nil
}

// Issue signs a token describing acct.
func (i *Issuer) Issue(acct *account.Account) (string, error) {
	if acct == nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Errorf("account is required")
	}
	now := i.now()
	claims := Claims{
		Username:         acct.Username,
		FriendCode3DS:    acct.FriendCode3DS,
		FriendCodeSwitch: acct.FriendCodeSwitch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  acct.ID.String(),
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("account_id", acct.ID.String()).Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and issuer of raw and returns its
// claims. Every failure wraps ErrInvalidToken.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithIssuedAt(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID").Wrap(errors.Join(ErrInvalidToken, err))
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, oops.Code("TOKEN_INVALID").Wrap(errors.Join(ErrInvalidToken, err))
	}
	return &claims, nil
}

var _ account.TokenIssuer = (*Issuer)(nil)
