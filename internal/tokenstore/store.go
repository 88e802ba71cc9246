// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package tokenstore persists the single access token of the signed-in user together
// with its absolute expiry. The pair lives under two keys of a kvstore.Store and is
// always written with one MultiSet call, so a reader never sees a new expiry next to
// an old token.
//
// A token is treated as invalid ExpirySkew before it actually expires, which leaves
// time for a silent refresh to finish before the backend starts rejecting requests.
package tokenstore

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apperrors "neardeal/cli/internal/errors"
	"neardeal/cli/internal/kvstore"
	"neardeal/cli/internal/logging"
)

// Keys used for the persisted record.
const (
	KeyAccessToken = "access_token"
	KeyExpiresAt   = "token_expires_at"
)

// ExpirySkew is how long before its real expiry a token stops being valid.
const ExpirySkew = 60 * time.Second

// ErrNoToken is returned when no valid token is stored.
var ErrNoToken = errors.New("no valid access token")

// Record is a read-only snapshot of the stored credential.
type Record struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Store owns the persisted credential.
type Store struct {
	kv     kvstore.Store
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store over kv.
func New(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores accessToken with an expiry expiresInSeconds from now, replacing any
// previous record.
func (s *Store) Save(ctx context.Context, accessToken string, expiresInSeconds int64) error {
	if accessToken == "" {
		return apperrors.New(apperrors.InvalidInput, "access token is empty")
	}
	ms := expiryMillis(s.now().UnixMilli(), expiresInSeconds)
	expiresAt := time.UnixMilli(ms)
	err := s.kv.MultiSet(ctx, map[string]string{
		KeyAccessToken: accessToken,
		KeyExpiresAt:   strconv.FormatInt(ms, 10),
	})
	if err != nil {
		return err
	}
	s.logger.Debug().
		Str("token", logging.MaskToken(accessToken)).
		Time("expires_at", expiresAt).
		Msg("token saved")
	return nil
}

// expiryMillis adds expiresInSeconds to nowMillis, saturating instead of overflowing.
func expiryMillis(nowMillis, expiresInSeconds int64) int64 {
	switch {
	case expiresInSeconds > (math.MaxInt64-nowMillis)/1000:
		return math.MaxInt64
	case expiresInSeconds < -nowMillis/1000:
		return 0
	}
	return nowMillis + expiresInSeconds*1000
}

// Read returns the stored record. ok is false when either key is missing or the
// expiry does not parse; only storage failures produce an error.
func (s *Store) Read(ctx context.Context) (Record, bool, error) {
	vals, err := s.kv.MultiGet(ctx, KeyAccessToken, KeyExpiresAt)
	if err != nil {
		return Record{}, false, err
	}
	token, hasToken := vals[KeyAccessToken]
	rawExpiry, hasExpiry := vals[KeyExpiresAt]
	if !hasToken || !hasExpiry || token == "" {
		if hasToken != hasExpiry {
			s.logger.Debug().Bool("has_token", hasToken).Bool("has_expiry", hasExpiry).Msg("partial token record ignored")
		}
		return Record{}, false, nil
	}
	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		s.logger.Debug().Str("expires_at", rawExpiry).Msg("unparseable expiry ignored")
		return Record{}, false, nil
	}
	return Record{AccessToken: token, ExpiresAt: time.UnixMilli(ms)}, true, nil
}

// Clear removes the record. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.MultiRemove(ctx, KeyAccessToken, KeyExpiresAt); err != nil {
		return err
	}
	s.logger.Debug().Msg("token cleared")
	return nil
}

// IsValid reports whether a record exists and expires more than ExpirySkew from now.
func (s *Store) IsValid(ctx context.Context) (bool, error) {
	rec, ok, err := s.Read(ctx)
	if err != nil || !ok {
		return false, err
	}
	return s.valid(rec), nil
}

func (s *Store) valid(rec Record) bool {
	return rec.ExpiresAt.After(s.now().Add(ExpirySkew))
}

// AccessToken returns the stored token when it is valid, ErrNoToken otherwise.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	rec, ok, err := s.Read(ctx)
	if err != nil {
		return "", err
	}
	if !ok || !s.valid(rec) {
		return "", ErrNoToken
	}
	return rec.AccessToken, nil
}
