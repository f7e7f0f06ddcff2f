// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package main

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dextracker/dextracker/internal/account"
	"github.com/dextracker/dextracker/internal/account/postgres"
	"github.com/dextracker/dextracker/internal/config"
	"github.com/dextracker/dextracker/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

//go:embed seeddata/reference.yaml
var referenceSeed []byte

type seedFamily struct {
	ID         string `yaml:"id"`
	Generation int    `yaml:"generation"`
	Order      int    `yaml:"order"`
}

type seedGame struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	GameFamilyID string `yaml:"game_family_id"`
	Order        int    `yaml:"order"`
}

type seedDexType struct {
	ID           int    `yaml:"id"`
	Name         string `yaml:"name"`
	GameFamilyID string `yaml:"game_family_id"`
	Order        int    `yaml:"order"`
}

// seedData is the reference data file layout.
type seedData struct {
	GameFamilies []seedFamily  `yaml:"game_families"`
	Games        []seedGame    `yaml:"games"`
	DexTypes     []seedDexType `yaml:"dex_types"`
}

// parseSeed decodes seed data and checks that every game and dex type
// names a family defined in the same file.
func parseSeed(raw []byte) (*seedData, error) {
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}

	families := make(map[string]bool, len(data.GameFamilies))
	for _, f := range data.GameFamilies {
		if f.ID == "" {
			return nil, oops.Code("SEED_INVALID").Errorf("game family with empty id")
		}
		families[f.ID] = true
	}
	for _, g := range data.Games {
		if g.ID == "" || !families[g.GameFamilyID] {
			return nil, oops.Code("SEED_INVALID").With("game", g.ID).With("game_family_id", g.GameFamilyID).
				Errorf("game must have an id and a known game family")
		}
	}
	for _, d := range data.DexTypes {
		if d.ID <= 0 || !families[d.GameFamilyID] {
			return nil, oops.Code("SEED_INVALID").With("dex_type", d.ID).With("game_family_id", d.GameFamilyID).
				Errorf("dex type must have a positive id and a known game family")
		}
	}
	return &data, nil
}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd(nil)
}

func newSeedCmd(deps *SeedDeps) *cobra.Command {
	if deps == nil {
		deps = &SeedDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = defaultPoolFactory
	}
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load game and dex type reference data",
		Long: `Loads game families, games and dex types into the database.
This command is idempotent - rows that already exist are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg, deps)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	config.RegisterLogFlags(cmd.Flags())

	return cmd
}

// seedCounts tallies inserted and skipped rows.
type seedCounts struct {
	inserted int
	skipped  int
}

func runSeed(cmd *cobra.Command, sc *seedConfig, deps *SeedDeps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := setupCommandLogging(cfg); err != nil {
		return err
	}

	data, err := parseSeed(referenceSeed)
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := deps.PoolFactory(ctx, cfg.Secrets.DatabaseURL, store.PoolOptions{MaxConns: 2})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	counts, err := seedReferences(ctx, postgres.NewReferenceRepository(pool), data)
	if err != nil {
		return err
	}

	cmd.Printf("Seeding complete: %d inserted, %d already present\n", counts.inserted, counts.skipped)
	slog.Info("reference data seeded", "inserted", counts.inserted, "skipped", counts.skipped)
	return nil
}

// referenceWriter inserts reference rows.
type referenceWriter interface {
	CreateGameFamily(ctx context.Context, f postgres.GameFamily) error
	CreateGame(ctx context.Context, g account.Game) error
	CreateDexType(ctx context.Context, t account.DexType) error
}

// seedReferences inserts families before the games and dex types that
// reference them. Unique violations are counted as skipped.
func seedReferences(ctx context.Context, w referenceWriter, data *seedData) (seedCounts, error) {
	var counts seedCounts
	record := func(kind string, id any, err error) error {
		switch {
		case err == nil:
			counts.inserted++
			return nil
		case isUniqueViolation(err):
			counts.skipped++
			slog.Debug("reference row already exists", "kind", kind, "id", id)
			return nil
		default:
			return oops.Code("SEED_FAILED").With("kind", kind).With("id", id).Wrap(err)
		}
	}

	for _, f := range data.GameFamilies {
		err := w.CreateGameFamily(ctx, postgres.GameFamily{ID: f.ID, Generation: f.Generation, Order: f.Order})
		if err := record("game_family", f.ID, err); err != nil {
			return counts, err
		}
	}
	for _, g := range data.Games {
		err := w.CreateGame(ctx, account.Game{ID: g.ID, Name: g.Name, GameFamilyID: g.GameFamilyID, Order: g.Order})
		if err := record("game", g.ID, err); err != nil {
			return counts, err
		}
	}
	for _, d := range data.DexTypes {
		err := w.CreateDexType(ctx, account.DexType{ID: d.ID, Name: d.Name, GameFamilyID: d.GameFamilyID, Order: d.Order})
		if err := record("dex_type", d.ID, err); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
