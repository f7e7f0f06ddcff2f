// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package xdg provides XDG Base Directory paths for DexTracker.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "dextracker"

// ConfigFileName is the configuration file looked up in ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for dextracker.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of config.yaml in ConfigDir, or an
// empty string when the file does not exist.
func DefaultConfigFile() (string, error) {
	path := filepath.Join(ConfigDir(), ConfigFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("CONFIG_FILE_INVALID").With("path", path).Errorf("config path is a directory")
	}
	return path, nil
}
