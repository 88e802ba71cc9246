// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var fakeSigningKey = []byte("test-signing-key")

// fakeAPI is an httptest server that issues and verifies HS256 access tokens the
// way the NearDeal API does.
type fakeAPI struct {
	*httptest.Server
	t *testing.T

	mu          sync.Mutex
	lifetime    time.Duration
	issued      int
	refreshes   int
	meCalls     int
	logouts     int
	lastBearer  string
	rejectLogin bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, lifetime: time.Hour}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", f.handleLogin)
	mux.HandleFunc("/api/auth/refresh", f.handleRefresh)
	mux.HandleFunc("/api/auth/logout", f.handleLogout)
	mux.HandleFunc("/api/users/me", f.handleMe)
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"version": "1.4.0"})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) client() *HTTP {
	return New(f.URL, DefaultEndpoints(), f.Server.Client(), testLogger())
}

func (f *fakeAPI) issue(subject string, lifetime time.Duration) string {
	f.issued++
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
		ID:        strings.Repeat("x", f.issued),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeSigningKey)
	if err != nil {
		f.t.Fatalf("sign token: %v", err)
	}
	return signed
}

// subject validates the bearer token, honoring expiry unless allowExpired is set.
func (f *fakeAPI) subject(r *http.Request, allowExpired bool) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.lastBearer = raw
	if raw == "" {
		return "", false
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return fakeSigningKey, nil }, opts...)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider := strings.TrimPrefix(r.URL.Path, "/api/auth/login/")
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AccessToken == "" || f.rejectLogin {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid provider token"})
		return
	}
	tok := f.issue(provider+":"+body.AccessToken, f.lifetime)
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"accessToken": tok, "expiresIn": int(f.lifetime.Seconds())},
	})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	sub, ok := f.subject(r, true)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "refresh rejected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": f.issue(sub, f.lifetime),
		"expires_in":   int(f.lifetime.Seconds()),
	})
}

func (f *fakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	sub, ok := f.subject(r, false)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"user_id": sub, "nickname": "student-" + sub, "role": "STUDENT"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
