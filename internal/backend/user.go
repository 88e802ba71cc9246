// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const meCacheTTL = 10 * time.Minute

// GetMe calls GET /api/users/me. Results are cached in memory for ten minutes;
// on network failure a cached profile is returned instead of the error. A 401 is
// always reported so that callers can trigger a refresh.
func (h *HTTP) GetMe(ctx context.Context, accessToken string) (map[string]any, error) {
	h.cacheMu.Lock()
	cached, cachedAt := h.meCache, h.meCacheTime
	h.cacheMu.Unlock()

	if cached != nil && time.Since(cachedAt) < meCacheTTL {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+h.endpoints.Me, nil)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	out, err := h.do(req, "get-me")
	if err != nil {
		if cached != nil && !errors.Is(err, ErrUnauthorized) {
			return cached, nil
		}
		return nil, err
	}
	if data := nested(out, "data"); data != nil {
		out = data
	}

	h.cacheMu.Lock()
	h.meCache = out
	h.meCacheTime = time.Now()
	h.cacheMu.Unlock()
	return out, nil
}

// DisplayName picks the most human-friendly identifier from a profile.
func DisplayName(profile map[string]any) string {
	for _, key := range []string{"nickname", "name", "email", "user_id", "id"} {
		if v, ok := profile[key].(string); ok && v != "" {
			return v
		}
	}
	return "user"
}
