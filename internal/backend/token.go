// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// RefreshToken calls POST /api/auth/refresh with the current token as bearer.
// The backend answers with a new access token and its lifetime.
func (h *HTTP) RefreshToken(ctx context.Context, accessToken string) (TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.endpoints.Refresh, nil)
	if err != nil {
		return TokenGrant{}, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	out, err := h.do(req, "refresh-token")
	if err != nil {
		return TokenGrant{}, err
	}
	return grantFromResponse(out)
}

// grantFromResponse extracts a TokenGrant from the top level or a "data" envelope.
func grantFromResponse(result map[string]any) (TokenGrant, error) {
	for _, node := range []map[string]any{result, nested(result, "data"), nested(result, "result")} {
		if node == nil {
			continue
		}
		if tok := extractAccessToken(node); tok != "" {
			return TokenGrant{AccessToken: tok, ExpiresIn: extractExpiresIn(node)}, nil
		}
	}
	return TokenGrant{}, fmt.Errorf("%w: no access_token", ErrMalformedResponse)
}

func nested(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

// extractAccessToken tries the common field names used for the access token.
func extractAccessToken(result map[string]any) string {
	for _, key := range []string{"access_token", "accessToken", "token"} {
		if v, ok := result[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MaxExpiresIn caps lifetimes read from responses so that later arithmetic in
// milliseconds cannot overflow.
const MaxExpiresIn = math.MaxInt64 / 1000

// extractExpiresIn reads the lifetime in seconds from a number or numeric string,
// clamped to [0, MaxExpiresIn].
func extractExpiresIn(result map[string]any) int64 {
	for _, key := range []string{"expires_in", "expiresIn"} {
		switch v := result[key].(type) {
		case float64:
			return clampExpiresIn(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return clampExpiresIn(f)
			}
		}
	}
	return 0
}

func clampExpiresIn(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= float64(MaxExpiresIn):
		return MaxExpiresIn
	}
	return int64(v)
}
