// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"neardeal/cli/internal/authevents"
	"neardeal/cli/internal/backend"
	"neardeal/cli/internal/config"
	"neardeal/cli/internal/kvstore"
	"neardeal/cli/internal/logging"
	"neardeal/cli/internal/refresh"
	"neardeal/cli/internal/session"
	"neardeal/cli/internal/tokenstore"
)

// app wires the auth subsystem for one command invocation: storage, token store,
// event bus, session controller, API client and refresher.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	kv        kvstore.Store
	tokens    *tokenstore.Store
	bus       *authevents.Bus
	session   *session.Controller
	api       *backend.HTTP
	refresher *refresh.Refresher
	unbind    func()
}

// openApp loads configuration and opens the configured storage backend.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, os.Stderr)
	kv, err := kvstore.Open(ctx, cfg.Storage, logging.Component(logger, "kvstore"))
	if err != nil {
		return nil, err
	}
	return newApp(cfg, kv, nil, logger), nil
}

// newApp assembles the components over an already opened store. A nil client
// uses the backend default.
func newApp(cfg config.Config, kv kvstore.Store, client *http.Client, logger zerolog.Logger) *app {
	tokens := tokenstore.New(kv, tokenstore.WithLogger(logging.Component(logger, "tokenstore")))
	bus := authevents.NewBus(logging.Component(logger, "authevents"))
	ctrl := session.NewController(tokens,
		session.WithLogger(logging.Component(logger, "session")),
		session.WithStartupTimeout(cfg.StartupTimeout()),
	)
	api := backend.New(cfg.APIBaseURL, backend.DefaultEndpoints(), client, logging.Component(logger, "backend"))
	a := &app{
		cfg:       cfg,
		logger:    logger,
		kv:        kv,
		tokens:    tokens,
		bus:       bus,
		session:   ctrl,
		api:       api,
		refresher: refresh.New(api, tokens, bus, logger),
	}
	a.unbind = ctrl.BindRefreshEvents(bus)
	return a
}

// resolveSession runs the startup check and waits for it.
func (a *app) resolveSession(ctx context.Context) (session.State, error) {
	a.session.Start(ctx)
	return a.session.Wait(ctx)
}

// defaultHTTPTimeout applies when the base client sets no timeout of its own.
const defaultHTTPTimeout = 10 * time.Second

// authorizedAPI returns a client whose requests carry the stored token and are
// retried once after a silent refresh.
func (a *app) authorizedAPI(base *http.Client) *backend.HTTP {
	return backend.New(a.cfg.APIBaseURL, backend.DefaultEndpoints(), a.authorizedClient(base), logging.Component(a.logger, "backend"))
}

// authorizedClient wraps base's transport in backend.AuthTransport. A nil base or
// one without a timeout gets defaultHTTPTimeout.
func (a *app) authorizedClient(base *http.Client) *http.Client {
	var rt http.RoundTripper
	timeout := defaultHTTPTimeout
	if base != nil {
		rt = base.Transport
		if base.Timeout > 0 {
			timeout = base.Timeout
		}
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &backend.AuthTransport{
			Base:      rt,
			Tokens:    a.tokens,
			Refresher: a.refresher,
			Logger:    logging.Component(a.logger, "transport"),
		},
	}
}

func (a *app) Close() {
	if a.unbind != nil {
		a.unbind()
	}
	if err := a.kv.Close(); err != nil {
		a.logger.Debug().Err(err).Msg("closing storage")
	}
}
