// Copyright 2026 The Darasa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package eventbus provides the in-process publish/subscribe dispatcher
// that connects the tenant provisioning stages. Delivery is per-process
// only: nothing is persisted, and events do not survive a restart.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Kind identifies an event type on the bus. Handlers subscribe to a Kind,
// never to a Go type, so the routing key is a closed set of stable values
// rather than anything derived from reflection.
type Kind string

// Event is anything that can be published on the bus.
type Event interface {
	Kind() Kind
}

// Handler processes a single event. An error returned by a handler is
// surfaced to the publisher; the bus itself never retries.
type Handler func(ctx context.Context, e Event) error

// Publisher is the narrow interface stages use to emit events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// MaxHandlersPerKind bounds the number of subscriptions for one kind.
const MaxHandlersPerKind = 10

// ErrTooManyHandlers is returned by Subscribe when a kind is at capacity.
var ErrTooManyHandlers = errors.New("eventbus: handler limit reached for kind")

type subscription struct {
	id int
	fn Handler
}

// Bus is an in-process dispatcher. Publish runs handlers in the calling
// goroutine, in subscription order; chains for distinct tenants interleave
// only because each chain is driven from its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Kind][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[Kind][]subscription)}
}

// Subscribe registers a handler for a kind and returns a subscription ID
// usable with Unsubscribe.
func (b *Bus) Subscribe(k Kind, h Handler) (int, error) {
	if h == nil {
		return 0, errors.New("eventbus: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.handlers[k]) >= MaxHandlersPerKind {
		return 0, fmt.Errorf("%w: %s", ErrTooManyHandlers, k)
	}

	b.nextID++
	id := b.nextID
	b.handlers[k] = append(b.handlers[k], subscription{id: id, fn: h})
	return id, nil
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(k Kind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[k]
	for i, s := range subs {
		if s.id == id {
			b.handlers[k] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every handler subscribed to its kind, in
// subscription order. Every handler runs even if an earlier one failed;
// the joined errors are returned to the caller. There is no rollback,
// no retry, and no dead-letter path.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return errors.New("eventbus: nil event")
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[e.Kind()]))
	copy(subs, b.handlers[e.Kind()])
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.fn(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
