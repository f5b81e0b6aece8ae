// Package eventbus provides implementations of the EventBus interface.
package eventbus

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// ErrClosed is returned by Close when the bus was already closed.
var ErrClosed = errors.New("event bus already closed")

// wildcard is the routing key of SubscribeAll handlers.
const wildcard domain.EventType = "*"

// SyncBus is a synchronous EventBus.
// Events are delivered on the publishing goroutine, type-specific handlers first,
// then wildcard handlers, each group in subscription order.
//
// Subscriber lists are copy-on-write: Publish only reads an immutable snapshot,
// so publishing from the frame loop neither allocates nor contends with Subscribe.
type SyncBus struct {
	logger *slog.Logger

	// mu serializes writers; readers use the atomic snapshot
	mu     sync.Mutex
	routes atomic.Pointer[routeTable]
	nextID atomic.Uint64
	closed atomic.Bool

	// panics counts recovered handler panics
	panics atomic.Uint64
}

// routeTable is never modified after it is published.
type routeTable map[domain.EventType][]subscription

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncBus creates a new synchronous event bus.
// A nil logger discards handler panic reports.
func NewSyncBus(logger *slog.Logger) *SyncBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bus := &SyncBus{logger: logger}
	bus.routes.Store(&routeTable{})
	return bus
}

// Publish delivers event to its subscribers. Handler panics are recovered and
// logged; the remaining handlers still run.
func (bus *SyncBus) Publish(event domain.Event) {
	if event == nil || bus.closed.Load() {
		return
	}

	table := *bus.routes.Load()
	for _, sub := range table[event.Type()] {
		bus.deliver(sub, event)
	}
	for _, sub := range table[wildcard] {
		bus.deliver(sub, event)
	}
}

func (bus *SyncBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.panics.Add(1)
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of the given type.
// It panics on a nil handler.
func (bus *SyncBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(eventType, "sub-", handler)
}

// SubscribeAll registers a handler that receives every event.
func (bus *SyncBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(wildcard, "sub-all-", handler)
}

func (bus *SyncBus) add(key domain.EventType, prefix string, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed.Load() {
		bus.logger.Warn("subscribe on closed event bus", slog.String("event_type", string(key)))
		return ""
	}

	id := domain.SubscriptionID(prefix + strconv.FormatUint(bus.nextID.Add(1), 10))

	old := *bus.routes.Load()
	next := make(routeTable, len(old)+1)
	for k, subs := range old {
		next[k] = subs
	}
	subs := make([]subscription, len(old[key]), len(old[key])+1)
	copy(subs, old[key])
	next[key] = append(subs, subscription{id: id, handler: handler})

	bus.routes.Store(&next)
	return id
}

// Unsubscribe removes a subscription, keeping the order of the others.
func (bus *SyncBus) Unsubscribe(id domain.SubscriptionID) {
	if id == "" {
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	old := *bus.routes.Load()
	for key, subs := range old {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			next := make(routeTable, len(old))
			for k, s := range old {
				next[k] = s
			}
			kept := make([]subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			kept = append(kept, subs[i+1:]...)
			if len(kept) == 0 {
				delete(next, key)
			} else {
				next[key] = kept
			}
			bus.routes.Store(&next)
			return
		}
	}
}

// HasSubscribers reports whether an event of this type would reach any handler.
func (bus *SyncBus) HasSubscribers(eventType domain.EventType) bool {
	table := *bus.routes.Load()
	return len(table[eventType]) > 0 || len(table[wildcard]) > 0
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncBus) SubscriberCount() int {
	count := 0
	for _, subs := range *bus.routes.Load() {
		count += len(subs)
	}
	return count
}

// RecoveredPanics returns how many handler panics were swallowed.
func (bus *SyncBus) RecoveredPanics() uint64 {
	return bus.panics.Load()
}

// Close drops all subscriptions. A second call returns ErrClosed.
func (bus *SyncBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed.Swap(true) {
		return ErrClosed
	}
	bus.routes.Store(&routeTable{})
	return nil
}

var _ ports.EventBus = (*SyncBus)(nil)
