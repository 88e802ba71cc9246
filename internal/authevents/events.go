// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package authevents carries silent-refresh outcomes from the refresh procedure to
// whoever needs to react to them (the session controller, the HTTP transport)
// without the refresher holding references to any of them.
//
// A Bus is constructed once at startup and passed explicitly to publishers and
// subscribers. Delivery is synchronous on the publisher's goroutine, in registration
// order. Nothing is buffered: a handler registered after a publish never sees it.
package authevents

// Kind identifies an event type on the bus.
type Kind string

const (
	// KindRefreshSucceeded is published after a silent refresh produced a new token.
	KindRefreshSucceeded Kind = "token_refresh_success"
	// KindRefreshFailed is published after a silent refresh gave up.
	KindRefreshFailed Kind = "token_refresh_failed"
)

// Event is implemented only by the event types declared in this package.
// Subscribers type-switch on the concrete value.
type Event interface {
	Kind() Kind
	sealed()
}

// TokenRefreshSuccess carries the newly issued access token and its lifetime.
type TokenRefreshSuccess struct {
	AccessToken string
	ExpiresIn   int64 // seconds
}

func (TokenRefreshSuccess) Kind() Kind { return KindRefreshSucceeded }
func (TokenRefreshSuccess) sealed()    {}

// TokenRefreshFailed reports a failed refresh. Reason may be empty.
type TokenRefreshFailed struct {
	Reason string
}

func (TokenRefreshFailed) Kind() Kind { return KindRefreshFailed }
func (TokenRefreshFailed) sealed()    {}
