// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dextracker/dextracker/pkg/errutil"
)

const tracerName = "github.com/dextracker/dextracker/internal/account"

// Operation names reported to the Recorder.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// ServiceConfig holds the dependencies of a Service. Logger and Recorder
// are optional.
type ServiceConfig struct {
	Accounts   AccountRepository
	References ReferenceRepository
	Transactor Transactor
	Hasher     PasswordHasher
	Tokens     TokenIssuer
	Logger     *slog.Logger
	Recorder   Recorder
}

// Result is the outcome of a successful create or update.
type Result struct {
	Account *Account
	Token   string
}

// Service orchestrates account creation and update.
type Service struct {
	accounts   AccountRepository
	references ReferenceRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	guard      *UniquenessGuard
	writer     *Writer
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Accounts == nil:
		return nil, oops.Code(CodeDependencyFailed).Errorf("accounts repository is required")
	case cfg.References == nil:
		return nil, oops.Code(CodeDependencyFailed).Errorf("references repository is required")
	case cfg.Transactor == nil:
		return nil, oops.Code(CodeDependencyFailed).Errorf("transactor is required")
	case cfg.Hasher == nil:
		return nil, oops.Code(CodeDependencyFailed).Errorf("password hasher is required")
	case cfg.Tokens == nil:
		return nil, oops.Code(CodeDependencyFailed).Errorf("token issuer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		accounts:   cfg.Accounts,
		references: cfg.References,
		hasher:     cfg.Hasher,
		tokens:     cfg.Tokens,
		guard:      NewUniquenessGuard(cfg.Accounts),
		writer:     NewWriter(cfg.Accounts, cfg.Transactor),
		logger:     logger,
		recorder:   recorder,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Create registers a new account together with its first dex and returns
// the refreshed account and a signed token.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "account.Create",
		trace.WithAttributes(attribute.String("username", in.Username)))
	defer span.End()
	start := time.Now()

	res, err := s.create(ctx, in)
	if err != nil {
		// A concurrent registration may win the race after the pre-check.
		err = s.guard.TranslateCommitError(in.Username, err)
	}

	s.observe(ctx, span, OperationCreate, in.Username, start, err)
	return res, err
}

func (s *Service) create(ctx context.Context, in CreateInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	slug, err := resolveSlug(in.Title, in.Slug)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	in.Password = ""

	game, dexType, err := s.resolve(ctx, in.Username, in.GameID, in.DexTypeID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRelationship(game, dexType); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acct := &Account{
		ID:               ulid.Make(),
		Username:         in.Username,
		PasswordHash:     hash,
		FriendCode3DS:    emptyToNil(in.FriendCode3DS),
		FriendCodeSwitch: emptyToNil(in.FriendCodeSwitch),
		Referrer:         emptyToNil(in.Referrer),
		LastIP:           emptyToNil(&in.LastIP),
		CreatedAt:        now,
		ModifiedAt:       now,
	}
	dex := &Dex{
		ID:         ulid.Make(),
		GameID:     game.ID,
		DexTypeID:  dexType.ID,
		Title:      in.Title,
		Slug:       slug,
		Shiny:      in.Shiny,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	created, err := s.writer.CreateWithDex(ctx, acct, dex)
	if err != nil {
		return nil, oops.Code(CodeCreateFailed).
			With("username", in.Username).
			Wrap(err)
	}

	return s.issue(created)
}

// resolve runs the username pre-check and both reference lookups
// concurrently. The first lookup failure cancels the others. A taken
// username is reported only after all lookups succeed, so a missing game or
// dex type takes precedence over it.
func (s *Service) resolve(ctx context.Context, username, gameID string, dexTypeID int) (*Game, *DexType, error) {
	var (
		game    *Game
		dexType *DexType
		taken   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.guard.CheckPreexisting(gctx, username)
		if errors.Is(err, ErrExistingUsername) {
			taken = err
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		game, err = s.references.GetGame(gctx, gameID)
		return lookupErr("game", gameID, err)
	})
	g.Go(func() error {
		var err error
		dexType, err = s.references.GetDexType(gctx, dexTypeID)
		return lookupErr("dex_type", dexTypeID, err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if taken != nil {
		return nil, nil, taken
	}
	return game, dexType, nil
}

func lookupErr(resource string, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return notFound(resource)
	}
	return oops.Code(CodeLookupFailed).
		With("resource", resource).
		With("id", id).
		Wrap(err)
}

// Update applies patch to the account named username on behalf of callerID
// and returns the refreshed account and a new token.
func (s *Service) Update(ctx context.Context, username string, callerID ulid.ULID, patch UpdatePatch) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "account.Update",
		trace.WithAttributes(attribute.String("username", username)))
	defer span.End()
	start := time.Now()

	res, err := s.update(ctx, username, callerID, patch)

	s.observe(ctx, span, OperationUpdate, username, start, err)
	return res, err
}

func (s *Service) update(ctx context.Context, username string, callerID ulid.ULID, patch UpdatePatch) (*Result, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	changes := Changes{
		FriendCode3DS:    patch.FriendCode3DS,
		FriendCodeSwitch: patch.FriendCodeSwitch,
		ModifiedAt:       time.Now().UTC(),
	}
	if patch.Password != nil {
		hash, err := s.hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = nil
		changes.PasswordHash = &hash
	}

	updated, err := s.writer.UpdateOwned(ctx, username, callerID, changes)
	if err != nil {
		return nil, err
	}

	return s.issue(updated)
}

// Get returns the account named username (case-insensitive) with its dexes.
func (s *Service) Get(ctx context.Context, username string) (*Account, error) {
	acct, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, oops.Code(CodeLookupFailed).
			With("resource", "user").
			With("username", username).
			Wrap(err)
	}
	return acct, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		return hash, nil
	}
	if errors.Is(err, ErrHashingFailure) {
		return "", err
	}
	return "", oops.Code(CodeHashingFailed).Wrapf(errors.Join(ErrHashingFailure, err), "hash password")
}

func (s *Service) issue(acct *Account) (*Result, error) {
	token, err := s.tokens.Issue(acct)
	if err != nil {
		return nil, oops.Code(CodeTokenSignFailed).
			With("account_id", acct.ID.String()).
			Wrap(err)
	}
	return &Result{Account: acct, Token: token}, nil
}

// observe records the outcome of an operation in logs, metrics and the span.
func (s *Service) observe(ctx context.Context, span trace.Span, operation, username string, start time.Time, err error) {
	outcome := Outcome(err)
	s.recorder.RecordOperation(operation, outcome, time.Since(start).Seconds())

	if err == nil {
		s.logger.InfoContext(ctx, "account "+operation+" succeeded", "username", username)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	if IsDomainError(err) {
		s.logger.InfoContext(ctx, "account "+operation+" rejected",
			"username", username,
			"outcome", outcome,
			"reason", err.Error())
		return
	}
	errutil.LogErrorContext(ctx, s.logger, "account "+operation+" failed", err)
}

// Outcome classifies err into a short label for metrics; "ok" for nil.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrExistingUsername):
		return "username_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrGameDexTypeMismatch):
		return "game_dex_type_mismatch"
	case errors.Is(err, ErrForbiddenAction):
		return "forbidden"
	case errors.Is(err, ErrHashingFailure):
		return "hashing_failed"
	default:
		return "error"
	}
}

// IsDomainError reports whether err is a caller-facing domain error rather
// than an internal failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrExistingUsername) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGameDexTypeMismatch) ||
		errors.Is(err, ErrForbiddenAction)
}
