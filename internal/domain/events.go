// Package domain defines events for the event-driven architecture.
// Events are the diagnostics channel between the pipeline and its host.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Controller events
	EventVisualStateChanged EventType = "visual.state_changed"
	EventStyleChanged       EventType = "visual.style_changed"
	EventFrameError         EventType = "visual.frame_error"

	// Sampler events
	EventSamplerReady    EventType = "sampler.ready"
	EventSamplerFailed   EventType = "sampler.failed"
	EventSamplerDisposed EventType = "sampler.disposed"

	// Surface events
	EventSurfaceResized EventType = "surface.resized"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// VisualStateChangedEvent is published when the controller starts a transition.
type VisualStateChangedEvent struct {
	baseEvent
	From VisualState
	To   VisualState
}

// Type returns the event type.
func (e VisualStateChangedEvent) Type() EventType {
	return EventVisualStateChanged
}

// NewVisualStateChangedEvent creates a new VisualStateChangedEvent.
func NewVisualStateChangedEvent(from, to VisualState) VisualStateChangedEvent {
	return VisualStateChangedEvent{
		baseEvent: newBaseEvent(),
		From:      from,
		To:        to,
	}
}

// StyleChangedEvent is published when the active renderer changes.
type StyleChangedEvent struct {
	baseEvent
	Style     Style
	Requested Style // Differs from Style when a fallback was applied
}

// Type returns the event type.
func (e StyleChangedEvent) Type() EventType {
	return EventStyleChanged
}

// NewStyleChangedEvent creates a new StyleChangedEvent.
func NewStyleChangedEvent(style, requested Style) StyleChangedEvent {
	return StyleChangedEvent{
		baseEvent: newBaseEvent(),
		Style:     style,
		Requested: requested,
	}
}

// FrameErrorEvent is published when a single frame failed to render.
// The animation loop keeps running.
type FrameErrorEvent struct {
	baseEvent
	Err   error
	Frame uint64
}

// Type returns the event type.
func (e FrameErrorEvent) Type() EventType {
	return EventFrameError
}

// NewFrameErrorEvent creates a new FrameErrorEvent.
func NewFrameErrorEvent(err error, frame uint64) FrameErrorEvent {
	return FrameErrorEvent{
		baseEvent: newBaseEvent(),
		Err:       err,
		Frame:     frame,
	}
}

// SamplerReadyEvent is published when the capture device is open.
type SamplerReadyEvent struct {
	baseEvent
	Source     string
	SampleRate int
}

// Type returns the event type.
func (e SamplerReadyEvent) Type() EventType {
	return EventSamplerReady
}

// NewSamplerReadyEvent creates a new SamplerReadyEvent.
func NewSamplerReadyEvent(source string, sampleRate int) SamplerReadyEvent {
	return SamplerReadyEvent{
		baseEvent:  newBaseEvent(),
		Source:     source,
		SampleRate: sampleRate,
	}
}

// SamplerFailedEvent is published when the capture device could not be opened.
type SamplerFailedEvent struct {
	baseEvent
	Source string
	Err    error
}

// Type returns the event type.
func (e SamplerFailedEvent) Type() EventType {
	return EventSamplerFailed
}

// NewSamplerFailedEvent creates a new SamplerFailedEvent.
func NewSamplerFailedEvent(source string, err error) SamplerFailedEvent {
	return SamplerFailedEvent{
		baseEvent: newBaseEvent(),
		Source:    source,
		Err:       err,
	}
}

// SamplerDisposedEvent is published after the capture device was released.
type SamplerDisposedEvent struct {
	baseEvent
	Source string
}

// Type returns the event type.
func (e SamplerDisposedEvent) Type() EventType {
	return EventSamplerDisposed
}

// NewSamplerDisposedEvent creates a new SamplerDisposedEvent.
func NewSamplerDisposedEvent(source string) SamplerDisposedEvent {
	return SamplerDisposedEvent{
		baseEvent: newBaseEvent(),
		Source:    source,
	}
}

// SurfaceResizedEvent is published when the backing store changes size.
type SurfaceResizedEvent struct {
	baseEvent
	Width      float64 // Displayed width in layout units
	Height     float64 // Displayed height in layout units
	PixelRatio float64 // Applied scale factor
}

// Type returns the event type.
func (e SurfaceResizedEvent) Type() EventType {
	return EventSurfaceResized
}

// NewSurfaceResizedEvent creates a new SurfaceResizedEvent.
func NewSurfaceResizedEvent(width, height, ratio float64) SurfaceResizedEvent {
	return SurfaceResizedEvent{
		baseEvent:  newBaseEvent(),
		Width:      width,
		Height:     height,
		PixelRatio: ratio,
	}
}
