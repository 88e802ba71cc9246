// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "neardeal/cli/internal/errors"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"kakao", ProviderKakao, false},
		{" Google ", ProviderGoogle, false},
		{"apple", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExchangeSocialToken(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()

	grant, err := c.ExchangeSocialToken(context.Background(), ProviderKakao, "kakao-provider-token")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.AccessToken)
	assert.Equal(t, int64(3600), grant.ExpiresIn)

	_, err = c.ExchangeSocialToken(context.Background(), Provider("apple"), "x")
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))

	_, err = c.ExchangeSocialToken(context.Background(), ProviderGoogle, "")
	assert.Error(t, err)
}

func TestExchangeSocialToken_Rejected(t *testing.T) {
	api := newFakeAPI(t)
	api.rejectLogin = true

	_, err := api.client().ExchangeSocialToken(context.Background(), ProviderGoogle, "google-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsUnauthorized(err))
}

func TestRefreshToken(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()
	old := api.issue("kakao:abc", -time.Minute)

	grant, err := c.RefreshToken(context.Background(), old)
	require.NoError(t, err)
	assert.NotEqual(t, old, grant.AccessToken)
	assert.Equal(t, int64(3600), grant.ExpiresIn)
	assert.Equal(t, old, api.lastBearer)

	_, err = c.RefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetMe_CachesProfile(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()
	tok := api.issue("kakao:abc", time.Hour)

	profile, err := c.GetMe(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "kakao:abc", profile["user_id"])
	assert.Equal(t, "student-kakao:abc", DisplayName(profile))

	_, err = c.GetMe(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, 1, api.meCalls)

	require.NoError(t, c.Logout(context.Background(), tok))
	assert.Equal(t, 1, api.logouts)

	_, err = c.GetMe(context.Background(), api.issue("kakao:abc", -time.Minute))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, api.meCalls)
}

func TestGetVersion(t *testing.T) {
	api := newFakeAPI(t)
	v, err := api.client().GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", v)
}

func TestGrantFromResponse(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]any
		want    TokenGrant
		wantErr bool
	}{
		{
			name: "snake case",
			in:   map[string]any{"access_token": "a", "expires_in": float64(60)},
			want: TokenGrant{AccessToken: "a", ExpiresIn: 60},
		},
		{
			name: "camel case in data envelope",
			in:   map[string]any{"status": "OK", "data": map[string]any{"accessToken": "b", "expiresIn": "1800"}},
			want: TokenGrant{AccessToken: "b", ExpiresIn: 1800},
		},
		{
			name: "token without lifetime",
			in:   map[string]any{"token": "c"},
			want: TokenGrant{AccessToken: "c"},
		},
		{
			name: "lifetime beyond int64 milliseconds is clamped",
			in:   map[string]any{"access_token": "d", "expires_in": 1e300},
			want: TokenGrant{AccessToken: "d", ExpiresIn: MaxExpiresIn},
		},
		{
			name: "huge numeric string is clamped",
			in:   map[string]any{"access_token": "e", "expires_in": "99999999999999999999999"},
			want: TokenGrant{AccessToken: "e", ExpiresIn: MaxExpiresIn},
		},
		{
			name: "negative lifetime",
			in:   map[string]any{"access_token": "f", "expires_in": float64(-5)},
			want: TokenGrant{AccessToken: "f"},
		},
		{
			name:    "missing token",
			in:      map[string]any{"expires_in": float64(60)},
			wantErr: true,
		},
		{
			name:    "nil body",
			in:      nil,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grantFromResponse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayName_Fallback(t *testing.T) {
	assert.Equal(t, "user", DisplayName(map[string]any{}))
	assert.Equal(t, "a@b.c", DisplayName(map[string]any{"email": "a@b.c", "id": "7"}))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrUnauthorized))
	assert.False(t, IsUnauthorized(errors.New("timeout")))
}
