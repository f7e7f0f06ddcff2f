// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package main

import (
	"context"

	"github.com/dextracker/dextracker/internal/account/postgres"
	"github.com/dextracker/dextracker/internal/observability"
	"github.com/dextracker/dextracker/internal/ratelimit"
	"github.com/dextracker/dextracker/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.NewPool
	PoolFactory PoolFactory

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// LimiterFactory connects the registration rate limiter.
	// Default: ratelimit.New
	LimiterFactory func(ctx context.Context, url string, cfg ratelimit.Config) (Limiter, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// SeedDeps contains injectable dependencies for the seed command.
type SeedDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.NewPool
	PoolFactory PoolFactory
}

// PoolFactory opens a database pool.
type PoolFactory func(ctx context.Context, url string, opts store.PoolOptions) (Pool, error)

// Pool is the subset of pgxpool.Pool used by the commands.
type Pool interface {
	postgres.Pool
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator applies pending migrations on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	AutoMigrator
	Down() error
	Status() (*store.Status, error)
}

// Limiter wraps the methods used from ratelimit.Limiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func defaultPoolFactory(ctx context.Context, url string, opts store.PoolOptions) (Pool, error) {
	pool, err := store.NewPool(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func defaultMigratorFactory(url string) (Migrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}
