// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"neardeal/cli/internal/logging"
)

// UserAgent is sent with every request.
var UserAgent = "neardeal-cli/dev"

// HTTP implements API over REST endpoints.
// User data is cached in memory to support offline scenarios and reduce API calls.
type HTTP struct {
	baseURL   string
	endpoints Endpoints
	client    *http.Client
	logger    zerolog.Logger

	cacheMu     sync.Mutex
	meCache     map[string]any
	meCacheTime time.Time
}

// New creates a backend API client for baseURL. A nil client gets a 10-second timeout.
func New(baseURL string, endpoints Endpoints, client *http.Client, logger zerolog.Logger) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		client:    client,
		logger:    logger,
	}
}

func (h *HTTP) setStandardHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
}

// do sends req and decodes a 200 JSON object. 401 maps to ErrUnauthorized.
func (h *HTTP) do(req *http.Request, op string) (map[string]any, error) {
	h.setStandardHeaders(req)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	h.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("backend response")

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s failed: %d %s", op, resp.StatusCode, logging.Mask(strings.TrimSpace(string(b))))
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	return out, nil
}

// GetVersion calls GET /api/version and returns the version string when available.
func (h *HTTP) GetVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+h.endpoints.Version, nil)
	if err != nil {
		return "", err
	}
	out, err := h.do(req, "version")
	if err != nil {
		return "", err
	}
	if v, ok := out["version"].(string); ok && v != "" {
		return v, nil
	}
	return "unknown", nil
}
