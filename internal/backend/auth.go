// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ExchangeSocialToken posts the provider token to /api/auth/login/{provider}.
// The provider token is passed through untouched; only the backend interprets it.
func (h *HTTP) ExchangeSocialToken(ctx context.Context, provider Provider, providerToken string) (TokenGrant, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return TokenGrant{}, err
	}
	if providerToken == "" {
		return TokenGrant{}, errors.New("provider token is empty")
	}
	body, err := json.Marshal(map[string]string{"accessToken": providerToken})
	if err != nil {
		return TokenGrant{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.endpoints.SocialLogin+string(provider), bytes.NewReader(body))
	if err != nil {
		return TokenGrant{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	out, err := h.do(req, "social-login")
	if err != nil {
		return TokenGrant{}, err
	}
	return grantFromResponse(out)
}

// Logout calls POST /api/auth/logout with the Authorization header and clears the
// cached profile.
func (h *HTTP) Logout(ctx context.Context, accessToken string) error {
	h.cacheMu.Lock()
	h.meCache = nil
	h.cacheMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.endpoints.Logout, nil)
	if err != nil {
		return err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	_, err = h.do(req, "logout")
	return err
}
