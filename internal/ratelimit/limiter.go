// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package ratelimit implements a Redis-backed fixed-window counter used to
// throttle registrations per client IP.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const defaultPrefix = "dextracker:ratelimit:"

// Config bounds the number of hits per key in each window.
type Config struct {
	Limit  int
	Window time.Duration
	// Prefix namespaces the Redis keys. Defaults to "dextracker:ratelimit:".
	Prefix string
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return oops.Code("RATELIMIT_CONFIG_INVALID").With("limit", c.Limit).Errorf("limit must be positive")
	}
	if c.Window <= 0 {
		return oops.Code("RATELIMIT_CONFIG_INVALID").With("window", c.Window).Errorf("window must be positive")
	}
	return nil
}

// Decision is the result of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is set when the request is denied.
	RetryAfter time.Duration
}

// Limiter counts hits per key in Redis.
type Limiter struct {
	client *redis.Client
	cfg    Config
}

// New connects to the Redis server at url and verifies the connection.
func New(ctx context.Context, url string, cfg Config) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("RATELIMIT_CONFIG_INVALID").Wrap(err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("RATELIMIT_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return &Limiter{client: client, cfg: withDefaults(cfg)}, nil
}

// NewWithClient creates a Limiter around an existing client.
func NewWithClient(client *redis.Client, cfg Config) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Limiter{client: client, cfg: withDefaults(cfg)}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	return cfg
}

// Allow records a hit for key and reports whether it is within the limit.
// The window starts at the first hit.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.cfg.Prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, oops.Code("RATELIMIT_CHECK_FAILED").With("key", key).Wrap(err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return Decision{}, oops.Code("RATELIMIT_CHECK_FAILED").With("key", key).Wrap(err)
		}
	}

	if count <= int64(l.cfg.Limit) {
		return Decision{Allowed: true, Remaining: l.cfg.Limit - int(count)}, nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, oops.Code("RATELIMIT_CHECK_FAILED").With("key", key).Wrap(err)
	}
	if ttl < 0 {
		// The key lost its expiry; restart the window.
		if err := l.client.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return Decision{}, oops.Code("RATELIMIT_CHECK_FAILED").With("key", key).Wrap(err)
		}
		ttl = l.cfg.Window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Ping checks the Redis connection.
func (l *Limiter) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return oops.Code("RATELIMIT_CONNECT_FAILED").Wrap(err)
	}
	return nil
}

// Close closes the Redis client.
func (l *Limiter) Close() error {
	if err := l.client.Close(); err != nil {
		return oops.Code("RATELIMIT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
