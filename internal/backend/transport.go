// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	apperrors "neardeal/cli/internal/errors"
)

// TokenSource supplies the current access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Refresher performs a silent refresh and returns the new grant.
type Refresher interface {
	Refresh(ctx context.Context) (TokenGrant, error)
}

// AuthTransport attaches the bearer token to outgoing requests. When the API answers
// 401 it runs the refresher once and replays the request with the new token.
// Requests whose body cannot be replayed are not retried.
type AuthTransport struct {
	Base      http.RoundTripper
	Tokens    TokenSource
	Refresher Refresher
	Logger    zerolog.Logger
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first := req.Clone(ctx)
	if tok, err := t.Tokens.AccessToken(ctx); err == nil && tok != "" {
		first.Header.Set("Authorization", "Bearer "+tok)
	} else if err != nil {
		t.Logger.Debug().Err(err).Msg("sending request without a stored token")
	}

	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.Refresher == nil {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	grant, err := t.Refresher.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("silent refresh after 401: %w", err)
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+grant.AccessToken)
	t.Logger.Debug().Str("url", req.URL.Path).Msg("retrying request after silent refresh")
	return t.base().RoundTrip(retry)
}

// IsUnauthorized reports whether err means the credential was rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || apperrors.Is(err, apperrors.Unauthorized)
}
