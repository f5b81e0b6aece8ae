// Package fyne provides Fyne UI adapter implementations.
// This package implements the host window using the Fyne toolkit.
package fyne

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/service"
)

// frameErrorInterval throttles status updates for frame failures.
// Frames run at 60 Hz; a broken renderer would otherwise repaint the status label every frame.
const frameErrorInterval = time.Second

// Visualization is the part of the controller the presenter drives.
type Visualization interface {
	SetFlags(flags domain.Flags)
	Flags() domain.Flags
	SetStyle(style domain.Style) error
	Style() domain.Style
	State() domain.TransitionState
}

// Presenter implements the Presenter pattern (MVP architecture).
// It coordinates between the controller and the host window.
//
// Responsibilities:
// - Subscribe to events from the event bus
// - Map domain events to view updates
// - Translate view commands to controller calls
// - Persist the selected style
//
// Thread-safety: All operations are thread-safe.
type Presenter struct {
	logger *slog.Logger

	viz   Visualization
	prefs *service.PreferenceService // Optional
	bus   ports.EventBus
	view  ports.UI

	now func() time.Time

	mu             sync.Mutex
	subscriptions  []domain.SubscriptionID
	lastFrameError time.Time
	droppedFrames  uint64

	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter, subscribes it to the bus and syncs the view.
func NewPresenter(
	logger *slog.Logger,
	viz Visualization,
	prefs *service.PreferenceService,
	bus ports.EventBus,
	view ports.UI,
) *Presenter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Presenter{
		logger: logger,
		viz:    viz,
		prefs:  prefs,
		bus:    bus,
		view:   view,
		now:    time.Now,
	}

	p.subscribeToEvents()
	p.syncInitialState()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventVisualStateChanged: p.onVisualStateChanged,
		domain.EventStyleChanged:       p.onStyleChanged,
		domain.EventFrameError:         p.onFrameError,

		domain.EventSamplerReady:    p.onSamplerReady,
		domain.EventSamplerFailed:   p.onSamplerFailed,
		domain.EventSamplerDisposed: p.onSamplerDisposed,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

// syncInitialState makes the view reflect the controller as it is now.
func (p *Presenter) syncInitialState() {
	p.view.SetStyle(p.viz.Style())
	p.view.SetFlags(p.viz.Flags())
	p.view.SetVisualState(p.viz.State().Target)
}

// RestoreStyle applies the style saved by a previous run.
// Without a usable saved style the current one is kept.
func (p *Presenter) RestoreStyle() {
	if p.prefs == nil {
		return
	}
	style, ok := p.prefs.GetStyle()
	if !ok {
		return
	}
	if err := p.viz.SetStyle(style); err != nil {
		p.logger.Warn("failed to restore style", slog.Any("error", err))
	}
}

// Event handlers

func (p *Presenter) onVisualStateChanged(event domain.Event) {
	e, ok := event.(domain.VisualStateChangedEvent)
	if !ok {
		return
	}
	p.view.SetVisualState(e.To)
}

func (p *Presenter) onStyleChanged(event domain.Event) {
	e, ok := event.(domain.StyleChangedEvent)
	if !ok {
		return
	}
	p.view.SetStyle(e.Style)
	if e.Requested != e.Style {
		p.view.ShowNotification("Style unavailable",
			fmt.Sprintf("%s is not supported, showing %s", e.Requested, e.Style.Label()))
	}
}

func (p *Presenter) onFrameError(event domain.Event) {
	e, ok := event.(domain.FrameErrorEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	p.droppedFrames++
	dropped := p.droppedFrames
	now := p.now()
	show := p.lastFrameError.IsZero() || now.Sub(p.lastFrameError) >= frameErrorInterval
	if show {
		p.lastFrameError = now
	}
	p.mu.Unlock()

	if show {
		p.view.SetStatus(fmt.Sprintf("Frame %d dropped (%d total): %v", e.Frame, dropped, e.Err))
	}
}

func (p *Presenter) onSamplerReady(event domain.Event) {
	e, ok := event.(domain.SamplerReadyEvent)
	if !ok {
		return
	}
	p.view.SetStatus(fmt.Sprintf("Capturing from %s at %d Hz", e.Source, e.SampleRate))
}

func (p *Presenter) onSamplerFailed(event domain.Event) {
	e, ok := event.(domain.SamplerFailedEvent)
	if !ok {
		return
	}
	p.view.SetStatus("Audio capture unavailable")
	p.view.ShowError("Audio capture unavailable", e.Err.Error())
}

func (p *Presenter) onSamplerDisposed(event domain.Event) {
	p.view.SetStatus("Audio capture stopped")
}

// View commands

// OnStyleSelected is called when the user picks a style label.
func (p *Presenter) OnStyleSelected(label string) {
	style, err := domain.ParseStyleLabel(label)
	if err != nil {
		p.view.ShowError("Unknown style", err.Error())
		return
	}
	if err := p.viz.SetStyle(style); err != nil {
		p.view.ShowError("Style change failed", err.Error())
		return
	}
	if p.prefs == nil {
		return
	}
	if err := p.prefs.SetStyle(style); err != nil {
		p.logger.Warn("failed to save style", slog.Any("error", err))
	}
}

// OnFlagsChanged is called when any conversation toggle changes.
func (p *Presenter) OnFlagsChanged(flags domain.Flags) {
	p.viz.SetFlags(flags)
}

// DroppedFrames returns the number of frame errors seen since the presenter started.
func (p *Presenter) DroppedFrames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.droppedFrames
}

// Shutdown removes the bus subscriptions. Safe to call multiple times.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		subs := p.subscriptions
		p.subscriptions = nil
		p.mu.Unlock()

		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
		p.logger.Debug("presenter shut down")
	})
}
