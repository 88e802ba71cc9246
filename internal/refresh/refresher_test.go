// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neardeal/cli/internal/authevents"
	"neardeal/cli/internal/backend"
	apperrors "neardeal/cli/internal/errors"
	"neardeal/cli/internal/kvstore"
	"neardeal/cli/internal/session"
	"neardeal/cli/internal/tokenstore"
)

type stubAPI struct {
	grant   backend.TokenGrant
	err     error
	calls   atomic.Int32
	gotTok  string
	release chan struct{}
}

func (s *stubAPI) RefreshToken(ctx context.Context, accessToken string) (backend.TokenGrant, error) {
	s.calls.Add(1)
	s.gotTok = accessToken
	if s.release != nil {
		<-s.release
	}
	if err := ctx.Err(); err != nil {
		return backend.TokenGrant{}, err
	}
	return s.grant, s.err
}

type recorder struct {
	mu     sync.Mutex
	events []authevents.Event
}

func (r *recorder) attach(bus *authevents.Bus) {
	h := func(ev authevents.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
		return nil
	}
	bus.Subscribe(authevents.KindRefreshSucceeded, h)
	bus.Subscribe(authevents.KindRefreshFailed, h)
}

func (r *recorder) all() []authevents.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]authevents.Event(nil), r.events...)
}

func newStore(t *testing.T, now time.Time) *tokenstore.Store {
	t.Helper()
	return tokenstore.New(kvstore.NewMemory(), tokenstore.WithClock(func() time.Time { return now }))
}

func TestRefresh_PublishesSuccess(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Now())
	require.NoError(t, store.Save(ctx, "old-token", 10))

	bus := authevents.NewBus(zerolog.Nop())
	rec := &recorder{}
	rec.attach(bus)
	api := &stubAPI{grant: backend.TokenGrant{AccessToken: "new-token", ExpiresIn: 3600}}

	grant, err := New(api, store, bus, zerolog.Nop()).Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "new-token", grant.AccessToken)
	assert.Equal(t, "old-token", api.gotTok)
	assert.Equal(t, []authevents.Event{authevents.TokenRefreshSuccess{AccessToken: "new-token", ExpiresIn: 3600}}, rec.all())
}

func TestRefresh_Failures(t *testing.T) {
	tests := []struct {
		name       string
		seed       bool
		api        *stubAPI
		wantReason string
	}{
		{
			name:       "no stored token",
			seed:       false,
			api:        &stubAPI{},
			wantReason: "no stored token",
		},
		{
			name:       "rejected",
			seed:       true,
			api:        &stubAPI{err: backend.ErrUnauthorized},
			wantReason: "refresh rejected by backend",
		},
		{
			name:       "malformed response",
			seed:       true,
			api:        &stubAPI{err: fmt.Errorf("refresh-token: %w", backend.ErrMalformedResponse)},
			wantReason: "refresh response unusable",
		},
		{
			name:       "missing lifetime",
			seed:       true,
			api:        &stubAPI{grant: backend.TokenGrant{AccessToken: "x"}},
			wantReason: "refresh response has no lifetime",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, time.Now())
			if tt.seed {
				require.NoError(t, store.Save(ctx, "old-token", 10))
			}
			bus := authevents.NewBus(zerolog.Nop())
			rec := &recorder{}
			rec.attach(bus)

			_, err := New(tt.api, store, bus, zerolog.Nop()).Refresh(ctx)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.RefreshFailed))

			events := rec.all()
			require.Len(t, events, 1)
			failed, ok := events[0].(authevents.TokenRefreshFailed)
			require.True(t, ok)
			assert.Contains(t, failed.Reason, tt.wantReason)
		})
	}
}

// failingReader reports a storage fault on every read.
type failingReader struct{}

var errStorage = apperrors.Wrap(apperrors.StorageUnavailable, "keyring", errors.New("locked"))

func (failingReader) Read(context.Context) (tokenstore.Record, bool, error) {
	return tokenstore.Record{}, false, errStorage
}

func TestRefresh_TransientFailuresPublishNothing(t *testing.T) {
	ctx := context.Background()
	networkDown := errors.New("dial tcp: connection refused")
	store := newStore(t, time.Now())
	require.NoError(t, store.Save(ctx, "old-token", 10))

	tests := []struct {
		name    string
		api     *stubAPI
		tokens  TokenReader
		wantErr error
	}{
		{"network", &stubAPI{err: networkDown}, store, networkDown},
		{"server error", &stubAPI{err: errors.New("refresh-token failed: 503 busy")}, store, nil},
		{"storage", &stubAPI{}, failingReader{}, errStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := authevents.NewBus(zerolog.Nop())
			rec := &recorder{}
			rec.attach(bus)

			_, err := New(tt.api, tt.tokens, bus, zerolog.Nop()).Refresh(ctx)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, apperrors.Is(err, apperrors.RefreshFailed))
			assert.Empty(t, rec.all())
		})
	}
}

func TestRefresh_CancelledCallerKeepsCredential(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(kvstore.NewMemory())
	bus := authevents.NewBus(zerolog.Nop())
	rec := &recorder{}
	rec.attach(bus)
	ctrl := session.NewController(store, session.WithLogger(zerolog.Nop()))
	defer ctrl.BindRefreshEvents(bus)()
	require.NoError(t, ctrl.HandleAuthSuccess(ctx, "tok", 3600))

	api := &stubAPI{err: errors.New("connection reset"), release: make(chan struct{})}
	r := New(api, store, bus, zerolog.Nop())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := r.Refresh(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	// Let the shared flight finish and observe its outcome from a live caller.
	close(api.release)
	_, err = r.Refresh(ctx)
	require.Error(t, err)

	assert.Empty(t, rec.all())
	assert.Equal(t, session.State{IsAuthenticated: true}, ctrl.GetState())
	tok, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestRefresh_FlightOutlivesCancelledCaller(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Now())
	require.NoError(t, store.Save(ctx, "old-token", 10))
	bus := authevents.NewBus(zerolog.Nop())
	rec := &recorder{}
	rec.attach(bus)
	api := &stubAPI{grant: backend.TokenGrant{AccessToken: "new-token", ExpiresIn: 60}, release: make(chan struct{})}
	r := New(api, store, bus, zerolog.Nop())

	caller, cancel := context.WithCancel(ctx)
	callerErr := make(chan error, 1)
	go func() {
		_, err := r.Refresh(caller)
		callerErr <- err
	}()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-callerErr, context.Canceled)
	close(api.release)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, authevents.TokenRefreshSuccess{AccessToken: "new-token", ExpiresIn: 60}, rec.all()[0])
}

func TestRefresh_ConcurrentCallersShareOneRequest(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, time.Now())
	require.NoError(t, store.Save(ctx, "old-token", 10))

	bus := authevents.NewBus(zerolog.Nop())
	rec := &recorder{}
	rec.attach(bus)
	api := &stubAPI{grant: backend.TokenGrant{AccessToken: "new-token", ExpiresIn: 60}, release: make(chan struct{})}
	r := New(api, store, bus, zerolog.Nop())

	const callers = 5
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			g, err := r.Refresh(ctx)
			if err == nil {
				results[i] = g.AccessToken
			}
		}(i)
	}
	started.Wait()
	// Give the goroutines a chance to join the in-flight call before releasing it.
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.release)
	done.Wait()

	for _, tok := range results {
		assert.Equal(t, "new-token", tok)
	}
	assert.LessOrEqual(t, api.calls.Load(), int32(callers))
	assert.Equal(t, len(rec.all()), int(api.calls.Load()))
}

func TestRefresh_DrivesSessionController(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store := tokenstore.New(kv)
	require.NoError(t, store.Save(ctx, "old-token", 10))

	bus := authevents.NewBus(zerolog.Nop())
	ctrl := session.NewController(store, session.WithLogger(zerolog.Nop()))
	unbind := ctrl.BindRefreshEvents(bus)
	defer unbind()

	api := &stubAPI{grant: backend.TokenGrant{AccessToken: "new-token", ExpiresIn: 3600}}
	_, err := New(api, store, bus, zerolog.Nop()).Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, session.State{IsAuthenticated: true}, ctrl.GetState())
	tok, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-token", tok)

	api.err = backend.ErrUnauthorized
	_, err = New(api, store, bus, zerolog.Nop()).Refresh(ctx)
	require.Error(t, err)

	assert.Equal(t, session.State{}, ctrl.GetState())
	_, ok, err := store.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
