// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/internal/account/postgres"
	"github.com/dextracker/dextracker/internal/api"
	"github.com/dextracker/dextracker/internal/config"
	"github.com/dextracker/dextracker/internal/observability"
	"github.com/dextracker/dextracker/internal/ratelimit"
	"github.com/dextracker/dextracker/internal/store"
	"github.com/dextracker/dextracker/internal/token"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API serving account registration and updates, plus the
metrics and health endpoints when a metrics address is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterServeFlags(cmd.Flags())

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies and
// blocks until ctx is cancelled, a signal arrives or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = defaultPoolFactory
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (AutoMigrator, error) {
			return defaultMigratorFactory(url)
		}
	}
	if deps.LimiterFactory == nil {
		deps.LimiterFactory = func(ctx context.Context, url string, cfg ratelimit.Config) (Limiter, error) {
			limiter, err := ratelimit.New(ctx, url, cfg)
			if err != nil {
				return nil, err
			}
			return limiter, nil
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger, err := setupCommandLogging(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := deps.PoolFactory(ctx, cfg.Secrets.DatabaseURL, store.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Secrets.DatabaseURL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	tokens, err := token.NewIssuer(token.Config{
		Secret: []byte(cfg.Secrets.TokenSecret),
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	var ready atomic.Bool
	var (
		recorder account.Recorder
		metrics  api.MetricsRecorder
		obs      ObservabilityServer
	)
	if cfg.Metrics.Addr != "" {
		obs = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		obsErrCh, err := obs.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		recorder = obs.Metrics()
		metrics = obs.Metrics()
	}

	var limiter api.RateLimiter
	if cfg.Secrets.RedisURL != "" && cfg.RateLimit.Registrations > 0 {
		l, err := deps.LimiterFactory(ctx, cfg.Secrets.RedisURL, ratelimit.Config{
			Limit:  cfg.RateLimit.Registrations,
			Window: cfg.RateLimit.Window,
		})
		if err != nil {
			stopObservability(obs, cfg)
			return err
		}
		defer func() {
			if err := l.Close(); err != nil {
				slog.Warn("error closing rate limiter", "error", err)
			}
		}()
		limiter = l
		logger.Info("registration rate limit enabled",
			"registrations", cfg.RateLimit.Registrations,
			"window", cfg.RateLimit.Window)
	} else {
		logger.Info("registration rate limit disabled")
	}

	service, err := account.NewService(account.ServiceConfig{
		Accounts:   postgres.NewAccountRepository(pool),
		References: postgres.NewReferenceRepository(pool),
		Transactor: postgres.NewTransactor(pool),
		Hasher:     account.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens,
		Logger:     logger,
		Recorder:   recorder,
	})
	if err != nil {
		stopObservability(obs, cfg)
		return err
	}

	router, err := api.NewRouter(api.RouterConfig{
		Accounts: service,
		Tokens:   tokens,
		Limiter:  limiter,
		Metrics:  metrics,
		Logger:   logger,

		TrustForwarded: cfg.RateLimit.TrustForwarded,
	})
	if err != nil {
		stopObservability(obs, cfg)
		return err
	}

	apiServer := api.NewServer(api.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, router)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopObservability(obs, cfg)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	ready.Store(true)
	cmd.Println("DexTracker API started")
	logger.Info("dextracker ready", "addr", apiServer.Addr())

	<-ctx.Done()
	ready.Store(false)
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// autoMigrate applies pending migrations before serving.
func autoMigrate(url string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	slog.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").Wrap(err)
	}
	return nil
}

func stopObservability(obs ObservabilityServer, cfg *config.Config) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
