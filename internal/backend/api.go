// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the client for the NearDeal REST API: exchanging a
// social-login token for a backend-issued access token, silent refresh, profile
// lookup and logout. It also provides AuthTransport, an http.RoundTripper that
// attaches the stored bearer token and retries once after a silent refresh when
// the API answers 401.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "neardeal/cli/internal/errors"
)

// API defines backend operations the CLI depends on.
// Implementations may call real HTTP endpoints or provide mocks for tests.
type API interface {
	GetVersion(ctx context.Context) (string, error)
	// ExchangeSocialToken trades a provider-issued token for a backend access token.
	ExchangeSocialToken(ctx context.Context, provider Provider, providerToken string) (TokenGrant, error)
	// RefreshToken exchanges the current (possibly expired) access token for a new one.
	RefreshToken(ctx context.Context, accessToken string) (TokenGrant, error)
	// GetMe retrieves the current user's profile as a loosely typed map.
	GetMe(ctx context.Context, accessToken string) (map[string]any, error)
	// Logout invalidates the access token on the backend.
	Logout(ctx context.Context, accessToken string) error
}

// TokenGrant is a backend-issued access token and its lifetime in seconds.
type TokenGrant struct {
	AccessToken string
	ExpiresIn   int64
}

// Provider is a social-login provider whose tokens the backend accepts.
type Provider string

const (
	ProviderKakao  Provider = "kakao"
	ProviderGoogle Provider = "google"
)

// ParseProvider validates a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderKakao, ProviderGoogle:
		return p, nil
	default:
		return "", apperrors.New(apperrors.InvalidInput, fmt.Sprintf("unsupported login provider %q (use kakao or google)", s))
	}
}

// ErrUnauthorized is returned when the backend answers 401.
var ErrUnauthorized = apperrors.New(apperrors.Unauthorized, "backend rejected the access token")

// ErrMalformedResponse is returned when a 2xx response cannot be decoded or lacks
// required fields.
var ErrMalformedResponse = errors.New("malformed backend response")
