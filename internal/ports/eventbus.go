package ports

import (
	"github.com/wealthwise/voiceviz/internal/domain"
)

// EventBus is the diagnostics channel between the visualization pipeline and its host.
//
// The controller, sampler and surface publish events; the host UI, logger and
// metrics subscribe. Publishers never learn who is listening.
//
// Publish is called from the frame loop, so implementations must not allocate
// heavily or block on slow handlers.
//
// Example usage:
//
//	bus.Subscribe(domain.EventFrameError, func(event domain.Event) {
//	    e := event.(domain.FrameErrorEvent)
//	    log.Warn("frame dropped", slog.Any("error", e.Err))
//	})
type EventBus interface {
	// Publish delivers an event to every subscriber of its type and to every wildcard subscriber.
	Publish(event domain.Event)

	// Subscribe registers a handler for one event type.
	// Returns an empty SubscriptionID when the bus is closed.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown IDs are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// HasSubscribers reports whether publishing eventType would reach any handler.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops every subscription. Publishing afterwards is a no-op.
	Close() error
}
