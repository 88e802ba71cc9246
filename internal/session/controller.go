// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"neardeal/cli/internal/authevents"
)

// TokenStore is the persistence the controller writes through to.
type TokenStore interface {
	Save(ctx context.Context, accessToken string, expiresInSeconds int64) error
	Clear(ctx context.Context) error
	IsValid(ctx context.Context) (bool, error)
}

// Listener receives the new state after every transition.
type Listener func(State)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Controller is the single source of truth for the session state.
type Controller struct {
	store          TokenStore
	logger         zerolog.Logger
	startupTimeout time.Duration

	// opMu serializes store writes with the state change that announces them.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners []listenerEntry
	nextID    uint64

	startOnce    sync.Once
	resolvedOnce sync.Once
	resolved     chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStartupTimeout bounds the startup validity check. A check that does not finish
// in time resolves to Unauthenticated. Zero disables the bound.
func WithStartupTimeout(d time.Duration) Option {
	return func(c *Controller) { c.startupTimeout = d }
}

// NewController returns a controller in the Initializing state. Call Start to run
// the startup check.
func NewController(store TokenStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		logger:   zerolog.Nop(),
		state:    initialState,
		resolved: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetState returns the current snapshot.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers l for state changes and returns a function that removes it.
// Listeners run synchronously on the goroutine that caused the transition and must
// not call HandleAuthSuccess or HandleLogout themselves.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: l})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, e := range c.listeners {
				if e.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Start launches the startup check in the background. Only the first call has an
// effect. Use Wait to block until the check has resolved.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.runStartupCheck(ctx)
	})
}

// Wait blocks until the session has left the Initializing state or ctx is done.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	select {
	case <-c.resolved:
		return c.GetState(), nil
	case <-ctx.Done():
		return c.GetState(), ctx.Err()
	}
}

type checkResult struct {
	valid bool
	err   error
}

func (c *Controller) runStartupCheck(ctx context.Context) {
	checkCtx := ctx
	if c.startupTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, c.startupTimeout)
		defer cancel()
	}

	// The store call runs on its own goroutine so that a backend ignoring ctx
	// cannot hold the controller in Initializing.
	done := make(chan checkResult, 1)
	go func() {
		valid, err := c.store.IsValid(checkCtx)
		done <- checkResult{valid: valid, err: err}
	}()

	var res checkResult
	select {
	case res = <-done:
	case <-checkCtx.Done():
		res = checkResult{err: checkCtx.Err()}
	}

	if res.err != nil {
		c.logger.Warn().Err(res.err).Msg("startup token check failed, treating session as signed out")
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.GetState().IsLoading {
		c.logger.Debug().Msg("startup check finished after an explicit transition, result discarded")
		return
	}
	c.transition(State{IsAuthenticated: res.err == nil && res.valid, IsLoading: false})
}

// HandleAuthSuccess stores the token and then marks the session authenticated.
// A storage failure is returned and leaves the state unchanged.
func (c *Controller) HandleAuthSuccess(ctx context.Context, accessToken string, expiresIn int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.store.Save(ctx, accessToken, expiresIn); err != nil {
		c.logger.Error().Err(err).Msg("saving token failed")
		return err
	}
	c.transition(State{IsAuthenticated: true, IsLoading: false})
	return nil
}

// HandleLogout clears the stored token and then marks the session unauthenticated.
// A storage failure is returned and leaves the state unchanged.
func (c *Controller) HandleLogout(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("clearing token failed")
		return err
	}
	c.transition(State{IsAuthenticated: false, IsLoading: false})
	return nil
}

// transition publishes next. Callers hold opMu.
func (c *Controller) transition(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if !next.IsLoading {
		c.resolvedOnce.Do(func() { close(c.resolved) })
	}

	c.logger.Debug().
		Stringer("from", prev.Phase()).
		Stringer("to", next.Phase()).
		Msg("session transition")

	for _, l := range listeners {
		l.fn(next)
	}
}

// BindRefreshEvents makes the controller follow silent refresh outcomes published on
// bus: a new token is written through as a sign-in, a failed refresh signs out.
// The returned function removes both subscriptions.
func (c *Controller) BindRefreshEvents(bus *authevents.Bus) (unbind func()) {
	onSuccess := bus.Subscribe(authevents.KindRefreshSucceeded, func(ev authevents.Event) error {
		e, ok := ev.(authevents.TokenRefreshSuccess)
		if !ok {
			return nil
		}
		return c.HandleAuthSuccess(context.Background(), e.AccessToken, e.ExpiresIn)
	})
	onFailure := bus.Subscribe(authevents.KindRefreshFailed, func(ev authevents.Event) error {
		if e, ok := ev.(authevents.TokenRefreshFailed); ok {
			c.logger.Info().Str("reason", e.Reason).Msg("silent refresh failed, signing out")
		}
		return c.HandleLogout(context.Background())
	})
	return func() {
		bus.Unsubscribe(onSuccess)
		bus.Unsubscribe(onFailure)
	}
}
