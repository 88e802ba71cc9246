// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package kvstore provides the durable key-value storage that backs the credential
// token store. Every backend offers the same multi-key contract: MultiSet writes a
// group of keys together, MultiGet returns whichever of the requested keys exist,
// and MultiRemove deletes a group of keys without failing on missing ones.
//
// Backends cover the OS credential store (keyring), a local sqlite database, Redis,
// PostgreSQL, and a process-local map for tests. All failures of the underlying
// medium are reported as storage_unavailable errors.
package kvstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"neardeal/cli/internal/config"
	apperrors "neardeal/cli/internal/errors"
)

// Store is a durable key-value medium with multi-key operations.
type Store interface {
	// MultiSet writes all pairs. Either every pair is stored or the call fails.
	MultiSet(ctx context.Context, pairs map[string]string) error
	// MultiGet returns the stored values for the keys that exist. Missing keys are
	// omitted from the result rather than reported as errors.
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	// MultiRemove deletes the keys. Removing absent keys is not an error.
	MultiRemove(ctx context.Context, keys ...string) error
	// Close releases connections held by the backend.
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.Storage, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendKeyring:
		return NewKeyring(KeyringOptions{FileDir: cfg.KeyringFileDir}, logger)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("unknown storage backend %q", cfg.Backend))
	}
}

func unavailable(op string, err error) error {
	return apperrors.Wrap(apperrors.StorageUnavailable, op, err)
}
