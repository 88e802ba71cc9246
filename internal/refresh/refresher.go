// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package refresh runs the silent token refresh procedure. A Refresher trades the
// stored access token for a new one and announces the outcome on the auth event
// bus; it never writes the token itself. Whoever subscribed to the bus (normally
// the session controller) persists the new token or logs the user out.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"neardeal/cli/internal/authevents"
	"neardeal/cli/internal/backend"
	apperrors "neardeal/cli/internal/errors"
	"neardeal/cli/internal/logging"
	"neardeal/cli/internal/tokenstore"
)

// TokenAPI is the backend call used to refresh.
type TokenAPI interface {
	RefreshToken(ctx context.Context, accessToken string) (backend.TokenGrant, error)
}

// TokenReader reads the stored record. Expired records are still returned.
type TokenReader interface {
	Read(ctx context.Context) (tokenstore.Record, bool, error)
}

// DefaultTimeout bounds one shared refresh flight.
const DefaultTimeout = 30 * time.Second

// Refresher performs silent refreshes. Concurrent callers share one in-flight call.
type Refresher struct {
	api     TokenAPI
	tokens  TokenReader
	bus     *authevents.Bus
	logger  zerolog.Logger
	timeout time.Duration

	group singleflight.Group
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithTimeout bounds each shared refresh flight.
func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) { r.timeout = d }
}

// New creates a Refresher publishing on bus.
func New(api TokenAPI, tokens TokenReader, bus *authevents.Bus, logger zerolog.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		api:     api,
		tokens:  tokens,
		bus:     bus,
		logger:  logging.Component(logger, "refresh"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh exchanges the stored token for a new one.
//
// Only terminal outcomes are published: TokenRefreshSuccess with the new grant, or
// TokenRefreshFailed when nothing is stored, the backend rejects the token, or its
// answer is unusable. Terminal failures carry kind RefreshFailed. Storage errors,
// transport errors, 5xx answers and caller cancellation are returned without an
// event, so the stored token survives them.
//
// The shared flight does not inherit the caller's cancellation; a caller whose ctx
// ends stops waiting while the flight finishes for the others.
func (r *Refresher) Refresh(ctx context.Context) (backend.TokenGrant, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.refresh(flightCtx)
	})
	select {
	case <-ctx.Done():
		return backend.TokenGrant{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			r.logger.Debug().Msg("joined in-flight refresh")
		}
		if res.Err != nil {
			return backend.TokenGrant{}, res.Err
		}
		return res.Val.(backend.TokenGrant), nil
	}
}

func (r *Refresher) refresh(ctx context.Context) (backend.TokenGrant, error) {
	rec, ok, err := r.tokens.Read(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("reading token for refresh failed")
		return backend.TokenGrant{}, err
	}
	if !ok {
		return backend.TokenGrant{}, r.fail("no stored token", tokenstore.ErrNoToken)
	}

	grant, err := r.api.RefreshToken(ctx, rec.AccessToken)
	switch {
	case err == nil:
	case backend.IsUnauthorized(err):
		return backend.TokenGrant{}, r.fail("refresh rejected by backend", err)
	case errors.Is(err, backend.ErrMalformedResponse):
		return backend.TokenGrant{}, r.fail("refresh response unusable", err)
	default:
		r.logger.Debug().Str("error", logging.Mask(err.Error())).Msg("refresh request failed, keeping token")
		return backend.TokenGrant{}, fmt.Errorf("refresh request failed: %w", err)
	}
	if grant.ExpiresIn <= 0 {
		return backend.TokenGrant{}, r.fail("refresh response has no lifetime", nil)
	}

	failed := r.bus.Publish(authevents.TokenRefreshSuccess{AccessToken: grant.AccessToken, ExpiresIn: grant.ExpiresIn})
	if failed > 0 {
		// The new token could not be persisted by at least one subscriber.
		r.logger.Warn().Int("failed_handlers", failed).Msg("refresh succeeded but a subscriber failed")
	}
	r.logger.Debug().Str("token", logging.MaskToken(grant.AccessToken)).Int64("expires_in", grant.ExpiresIn).Msg("token refreshed")
	return grant, nil
}

func (r *Refresher) fail(reason string, cause error) error {
	msg := reason
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", reason, logging.Mask(cause.Error()))
	}
	r.logger.Debug().Str("reason", msg).Msg("refresh failed")
	r.bus.Publish(authevents.TokenRefreshFailed{Reason: msg})
	return apperrors.Wrap(apperrors.RefreshFailed, reason, cause)
}
