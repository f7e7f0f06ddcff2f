// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package api exposes account registration and update over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/internal/ratelimit"
	"github.com/dextracker/dextracker/internal/token"
)

// Route names, used as the metrics label.
const (
	RouteCreateUser = "create_user"
	RouteUpdateUser = "update_user"
	RouteGetUser    = "get_user"
	RouteHealth     = "health"
)

// AccountService is the account workflow used by the handlers.
type AccountService interface {
	Create(ctx context.Context, in account.CreateInput) (*account.Result, error)
	Update(ctx context.Context, username string, callerID ulid.ULID, patch account.UpdatePatch) (*account.Result, error)
	Get(ctx context.Context, username string) (*account.Account, error)
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// RateLimiter throttles registrations by key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// MetricsRecorder receives per-request metrics.
type MetricsRecorder interface {
	RecordRequest(route string, code int)
	RecordRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(string, int) {}
func (nopMetrics) RecordRateLimited()        {}

// RouterConfig holds the router dependencies. Limiter, Metrics and Logger
// are optional.
type RouterConfig struct {
	Accounts AccountService
	Tokens   TokenVerifier
	Limiter  RateLimiter
	Metrics  MetricsRecorder
	Logger   *slog.Logger

	// TrustForwarded keys the registration limit on X-Forwarded-For
	// instead of the peer address. Enable only behind a proxy that
	// overwrites the header.
	TrustForwarded bool
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Accounts == nil {
		return nil, oops.Code("API_DEPENDENCY_MISSING").Errorf("account service is required")
	}
	if cfg.Tokens == nil {
		return nil, oops.Code("API_DEPENDENCY_MISSING").Errorf("token verifier is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	h := &handler{accounts: cfg.Accounts, logger: logger}

	r := mux.NewRouter()
	r.Use(logging(logger, metrics))
	r.Use(recovery(logger))

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet).Name(RouteHealth)
	r.HandleFunc("/users/{username}", h.get).Methods(http.MethodGet).Name(RouteGetUser)

	var create http.Handler = http.HandlerFunc(h.create)
	if cfg.Limiter != nil {
		create = throttle(cfg.Limiter, cfg.TrustForwarded, metrics, logger)(create)
	}
	r.Handle("/users", create).Methods(http.MethodPost).Name(RouteCreateUser)

	update := authenticate(cfg.Tokens, logger)(http.HandlerFunc(h.update))
	r.Handle("/users/{username}", update).Methods(http.MethodPost).Name(RouteUpdateUser)

	return r, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
