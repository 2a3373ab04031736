// Package eventbus delivers registry and orchestrator lifecycle events to
// in-process subscribers.
package eventbus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"agentic/internal/domain"
)

// allEvents is the filter value for subscribers that receive every event.
const allEvents domain.EventType = ""

type subscription struct {
	id      uint64
	filter  domain.EventType
	handler domain.EventHandler
}

func (s subscription) matches(t domain.EventType) bool {
	return s.filter == allEvents || s.filter == t
}

// Bus is an in-process, goroutine-safe event bus. Publish never waits for
// handlers; each handler runs on its own goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
	logger *slog.Logger
	wg     sync.WaitGroup
	closed atomic.Bool

	delivered atomic.Uint64
	panicked  atomic.Uint64
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "eventbus")}
}

// Publish fans an event out to every matching subscriber.
// Panicking handlers are recovered and logged.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(event.Type) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.dispatch(ctx, event, sub)
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.panicked.Add(1)
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"agent_id", event.AgentID,
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
		b.delivered.Add(1)
	}()
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add(allEvents, handler)
}

func (b *Bus) add(filter domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, filter: filter, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Stats reports how many handler invocations completed and how many panicked.
func (b *Bus) Stats() (delivered, panicked uint64) {
	return b.delivered.Load(), b.panicked.Load()
}

// Close prevents new publishes and waits for all in-flight handlers to finish.
// Close is idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}
