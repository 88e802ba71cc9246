// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the process-wide answer to "is this process signed in".
// The Controller rehydrates that answer from the token store once at startup and
// keeps it in step with explicit sign-in and sign-out actions afterwards.
//
// Every transition that announces a credential change is published only after the
// token store has been updated, so an observer that sees Authenticated can rely on a
// stored token and one that sees Unauthenticated will not find a stale one.
package session

// Phase is the controller's lifecycle state.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session.
type State struct {
	IsAuthenticated bool `json:"is_authenticated"`
	IsLoading       bool `json:"is_loading"`
}

// Phase maps the snapshot onto the lifecycle state.
func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseInitializing
	case s.IsAuthenticated:
		return PhaseAuthenticated
	default:
		return PhaseUnauthenticated
	}
}

var initialState = State{IsAuthenticated: false, IsLoading: true}
