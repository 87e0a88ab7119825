// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Handler consumes events synchronously. Its error fails the publisher.
type Handler interface {
	HandleEvent(ctx context.Context, e Event) error
}

type subscriber struct {
	ch    chan Event
	names []string // empty means all events
}

func (s subscriber) wants(name string) bool {
	return len(s.names) == 0 || lo.Contains(s.names, name)
}

// Dispatcher fans events out to handlers and channel subscribers.
// Handlers run in registration order and may veto an event by failing;
// subscribers receive a copy when their buffer has room.
type Dispatcher struct {
	handlers    []Handler
	subscribers []subscriber
	mu          sync.RWMutex
}

// NewDispatcher creates a dispatcher with the given handlers.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// AddHandler appends a synchronous handler.
func (d *Dispatcher) AddHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, h)
}

// Subscribe registers a channel receiving the named events, or all events
// if no names are given.
func (d *Dispatcher) Subscribe(names ...string) chan Event {
	ch := make(chan Event, 10) // buffered to prevent blocking

	d.mu.Lock()
	defer d.mu.Unlock()

	d.subscribers = append(d.subscribers, subscriber{ch: ch, names: names})
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (d *Dispatcher) Unsubscribe(ch chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	before := len(d.subscribers)
	d.subscribers = lo.Filter(d.subscribers, func(s subscriber, _ int) bool {
		return s.ch != ch
	})
	if len(d.subscribers) != before {
		close(ch)
	}
}

// HandleEvent implements Bus.
func (d *Dispatcher) HandleEvent(ctx context.Context, e Event) error {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h.HandleEvent(ctx, e); err != nil {
			return fmt.Errorf("handler rejected %s: %w", e.Name, err)
		}
	}

	d.broadcast(e)
	return nil
}

// broadcast holds the read lock while sending so Unsubscribe cannot close a
// channel mid-send.
func (d *Dispatcher) broadcast(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.subscribers {
		if !s.wants(e.Name) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			// Channel full, skip (prevents blocking)
		}
	}
}

// SubscriberCount returns the number of channel subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.subscribers)
}
