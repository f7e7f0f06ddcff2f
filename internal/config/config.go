// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package config loads DexTracker configuration from defaults, an optional
// YAML file, command-line flags and environment secrets, in that order.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/dextracker/dextracker/internal/logging"
	"github.com/dextracker/dextracker/internal/token"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
	Secrets   Secrets         `koanf:"-"`
}

// ServerConfig configures the public HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability server. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the connection pool.
type DatabaseConfig struct {
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// AuthConfig configures password hashing and session tokens.
type AuthConfig struct {
	BcryptCost  int           `koanf:"bcrypt_cost"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
	TokenIssuer string        `koanf:"token_issuer"`
}

// RateLimitConfig bounds registrations per client IP. Zero Registrations
// disables the limit. TrustForwarded keys the limit on X-Forwarded-For
// rather than the peer address.
type RateLimitConfig struct {
	Registrations  int           `koanf:"registrations"`
	Window         time.Duration `koanf:"window"`
	TrustForwarded bool          `koanf:"trust_forwarded"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Secrets are read only from the environment.
type Secrets struct {
	DatabaseURL string `env:"DATABASE_URL"`
	TokenSecret string `env:"DEXTRACKER_TOKEN_SECRET"`
	RedisURL    string `env:"DEXTRACKER_REDIS_URL"`
}

// Default returns the compiled defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			MaxConns:        10,
			MaxConnLifetime: time.Hour,
		},
		Auth: AuthConfig{
			BcryptCost:  bcrypt.DefaultCost,
			TokenTTL:    30 * 24 * time.Hour,
			TokenIssuer: "dextracker",
		},
		RateLimit: RateLimitConfig{
			Registrations: 5,
			Window:        time.Hour,
		},
		Log: LogConfig{Format: "json", Level: "info"},
	}
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by Load.
var flagKeys = map[string]string{
	"addr":              "server.addr",
	"metrics-addr":      "metrics.addr",
	"auto-migrate":      "database.auto_migrate",
	"bcrypt-cost":       "auth.bcrypt_cost",
	"token-ttl":         "auth.token_ttl",
	"rate-limit":        "rate_limit.registrations",
	"rate-limit-window": "rate_limit.window",
	"trust-forwarded":   "rate_limit.trust_forwarded",
	"log-format":        "log.format",
	"log-level":         "log.level",
}

// RegisterLogFlags adds the logging flags to fs.
func RegisterLogFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// RegisterServeFlags adds the server flags, including the logging flags, to fs.
func RegisterServeFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.Int("bcrypt-cost", d.Auth.BcryptCost, "bcrypt work factor")
	fs.Duration("token-ttl", d.Auth.TokenTTL, "session token lifetime (0 = no expiry)")
	fs.Int("rate-limit", d.RateLimit.Registrations, "registrations allowed per client IP per window (0 = unlimited)")
	fs.Duration("rate-limit-window", d.RateLimit.Window, "registration rate limit window")
	fs.Bool("trust-forwarded", d.RateLimit.TrustForwarded, "key the rate limit on X-Forwarded-For (only behind a trusted proxy)")
	RegisterLogFlags(fs)
}

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// Path is an optional YAML file.
	Path string
	// Flags is an optional parsed flag set.
	Flags *pflag.FlagSet
	// Env replaces the process environment when non-nil.
	Env map[string]string
}

// Load builds a Config from defaults, the file, flags and environment.
// It does not validate the result.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", opts.Path).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := env.ParseWithOptions(&cfg.Secrets, env.Options{Environment: opts.Env}); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "log.level").
			Errorf("log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("field", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Secrets.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "DATABASE_URL").
			Errorf("DATABASE_URL environment variable is required")
	}
	return nil
}

// ValidateServe checks the settings the HTTP server needs in addition to
// those checked by Validate.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	invalid := func(field, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
	}

	switch {
	case c.Server.Addr == "":
		return invalid("server.addr", "server address is required")
	case c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost:
		return invalid("auth.bcrypt_cost", "bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	case c.Auth.TokenTTL < 0:
		return invalid("auth.token_ttl", "token TTL must not be negative")
	case len(c.Secrets.TokenSecret) < token.MinSecretLength:
		return invalid("DEXTRACKER_TOKEN_SECRET", "DEXTRACKER_TOKEN_SECRET must be at least %d bytes",
			token.MinSecretLength)
	case c.RateLimit.Registrations < 0:
		return invalid("rate_limit.registrations", "rate limit must not be negative")
	case c.RateLimit.Registrations > 0 && c.RateLimit.Window <= 0:
		return invalid("rate_limit.window", "rate limit window must be positive")
	}
	return nil
}
