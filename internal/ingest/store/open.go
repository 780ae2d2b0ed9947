// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Path          string
	Key           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the Store named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = "relay247:ingest"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		return NewFile(cfg.Path), nil
	case BackendRedis:
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      key,
		}, logger)
	case BackendSQLite:
		return NewSQLite(ctx, cfg.Path, key)
	case BackendBadger:
		return NewBadger(cfg.Path, key)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
