// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package kvstore

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "neardeal"

// KeyringPasswordEnv supplies the passphrase for the encrypted file backend.
const KeyringPasswordEnv = "NEARDEAL_KEYRING_PASSWORD"

// KeyringOptions tunes which OS credential backends are tried.
type KeyringOptions struct {
	// FileDir enables the encrypted file backend in this directory. When set, the
	// native macOS security command is skipped.
	FileDir string
}

// Keyring stores each key as a separate item in the OS credential store.
// Keyring backends have no transactions, so MultiSet restores the previous
// values of already-written keys when a later write fails.
type Keyring struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend nativeBackend
	logger  zerolog.Logger
}

// nativeBackend is a credential store driven through a platform command line tool.
type nativeBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// NewKeyring opens the OS credential store.
func NewKeyring(opts KeyringOptions, logger zerolog.Logger) (*Keyring, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" && opts.FileDir == "" {
		backend, err := newSecurityBackend(logger)
		if err == nil {
			return &Keyring{backend: backend, logger: logger}, nil
		}
		logger.Debug().Err(err).Msg("security command unavailable, falling back to keyring library")
	}

	ring, err := openRing(opts)
	if err != nil {
		return nil, unavailable("open keyring", err)
	}
	return NewKeyringWithRing(ring, logger), nil
}

// NewKeyringWithRing wraps an already opened keyring.
func NewKeyringWithRing(ring keyring.Keyring, logger zerolog.Logger) *Keyring {
	return &Keyring{ring: ring, logger: logger}
}

// openRing opens the OS keyring using the platform's native backends, plus the
// encrypted file backend when a directory is configured.
func openRing(opts KeyringOptions) (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	default:
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
	if opts.FileDir != "" {
		allowed = append(allowed, keyring.FileBackend)
	}

	cfg := keyring.Config{
		ServiceName:      ServiceName,
		AllowedBackends:  allowed,
		PassPrefix:       ServiceName,
		WinCredPrefix:    ServiceName,
		FileDir:          opts.FileDir,
		FilePasswordFunc: keyring.FixedStringPrompt(os.Getenv(KeyringPasswordEnv)),
	}
	return keyring.Open(cfg)
}

func (k *Keyring) get(key string) (string, bool, error) {
	if k.backend != nil {
		v, err := k.backend.Get(key)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return v, true, nil
	}

	it, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(it.Data), true, nil
}

func (k *Keyring) set(key, value string) error {
	if k.backend != nil {
		return k.backend.Set(key, value)
	}
	return k.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (k *Keyring) remove(key string) error {
	if k.backend != nil {
		return k.backend.Delete(key)
	}
	err := k.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

type priorValue struct {
	key     string
	value   string
	present bool
}

// MultiSet writes the pairs in key order. This method is thread-safe.
func (k *Keyring) MultiSet(ctx context.Context, pairs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("keyring multiset", err)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	written := make([]priorValue, 0, len(keys))
	for _, key := range keys {
		old, present, err := k.get(key)
		if err != nil {
			k.rollback(written)
			return unavailable("keyring read "+key, err)
		}
		if err := k.set(key, pairs[key]); err != nil {
			k.rollback(written)
			return unavailable("keyring write "+key, err)
		}
		written = append(written, priorValue{key: key, value: old, present: present})
	}
	return nil
}

func (k *Keyring) rollback(written []priorValue) {
	for i := len(written) - 1; i >= 0; i-- {
		p := written[i]
		var err error
		if p.present {
			err = k.set(p.key, p.value)
		} else {
			err = k.remove(p.key)
		}
		if err != nil {
			k.logger.Warn().Err(err).Str("key", p.key).Msg("keyring rollback failed")
		}
	}
}

// MultiGet reads the keys. This method is thread-safe.
func (k *Keyring) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("keyring multiget", err)
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, ok, err := k.get(key)
		if err != nil {
			return nil, unavailable("keyring read "+key, err)
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// MultiRemove deletes the keys. This method is thread-safe.
func (k *Keyring) MultiRemove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("keyring multiremove", err)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := k.remove(key); err != nil && firstErr == nil {
			firstErr = unavailable("keyring remove "+key, err)
		}
	}
	return firstErr
}

func (k *Keyring) Close() error { return nil }
