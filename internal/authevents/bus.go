// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package authevents

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler reacts to one event. A returned error or a panic is logged and does not
// stop delivery to the remaining handlers.
type Handler func(Event) error

// Subscription identifies one registration and is used to remove it.
type Subscription struct {
	ID   uuid.UUID
	Kind Kind
}

type registration struct {
	id      uuid.UUID
	handler Handler
}

// Bus is a typed publish/subscribe channel for auth events.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]registration
	logger   zerolog.Logger
}

// NewBus returns an empty bus that reports handler failures to logger.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind][]registration),
		logger:   logger,
	}
}

// Subscribe registers h for events of kind until the returned subscription is removed.
func (b *Bus) Subscribe(kind Kind, h Handler) Subscription {
	sub := Subscription{ID: uuid.New(), Kind: kind}
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], registration{id: sub.ID, handler: h})
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a registration. Unknown or already removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.Kind]
	for i, r := range regs {
		if r.id == sub.ID {
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			b.handlers[sub.Kind] = next
			return
		}
	}
}

// Publish delivers ev to the handlers registered for its kind at the time of the call
// and returns how many of them failed. Handlers may subscribe or unsubscribe while
// being invoked; such changes take effect from the next publish.
func (b *Bus) Publish(ev Event) int {
	b.mu.Lock()
	regs := b.handlers[ev.Kind()]
	b.mu.Unlock()

	failed := 0
	for _, r := range regs {
		if err := b.invoke(r, ev); err != nil {
			failed++
			b.logger.Error().Err(err).
				Str("kind", string(ev.Kind())).
				Str("subscription", r.id.String()).
				Msg("auth event handler failed")
		}
	}
	return failed
}

func (b *Bus) invoke(r registration, ev Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return r.handler(ev)
}

// Len reports how many handlers are registered for kind.
func (b *Bus) Len(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[kind])
}
