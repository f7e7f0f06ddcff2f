// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dextracker/dextracker/internal/config"
	"github.com/dextracker/dextracker/internal/logging"
	"github.com/dextracker/dextracker/internal/xdg"
)

const serviceName = "dextracker"

// NewRootCmd creates the root command for the DexTracker CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dextracker",
		Short: "DexTracker - Pokédex tracking accounts service",
		Long: `DexTracker registers trainer accounts with their first dex, updates
account settings and issues signed session tokens, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default $XDG_CONFIG_HOME/dextracker/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

// loadConfig reads the configuration for cmd from the --config file, the
// command's flags and the environment. Without --config it falls back to
// config.yaml in the XDG config directory when that file exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(config.LoadOptions{Path: path, Flags: cmd.Flags()})
}

// setupCommandLogging installs the configured logger as the slog default.
func setupCommandLogging(cfg *config.Config) (*slog.Logger, error) {
	return logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)
}
