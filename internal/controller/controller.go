// Package controller owns the visualization frame loop.
//
// The Controller turns host flags into a visual state, advances the
// cross-fade between states, pulls audio from the sampler while listening and
// asks the active style renderer to draw each frame onto the surface.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/observe"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/render"
)

// Surface is the drawing target the controller renders into.
// surface.Surface implements it.
type Surface interface {
	Ready() bool
	QualityHint() domain.QualitySettings
	Draw(fn func(ports.Canvas) error) error
}

// Config holds the controller settings.
type Config struct {
	// Style is the initial visualization style.
	Style domain.Style

	// Strict makes unknown styles an error instead of falling back to domain.DefaultStyle.
	Strict bool

	// TransitionDuration is the cross-fade length. Zero uses domain.DefaultTransitionDuration.
	TransitionDuration time.Duration

	// Seed makes the particle renderer reproducible.
	Seed uint64
}

// Deps are the collaborators of a Controller.
// Sampler, Bus, Metrics and Logger are optional.
type Deps struct {
	Surface   Surface
	Scheduler ports.Scheduler
	Sampler   ports.AudioSampler
	Bus       ports.EventBus
	Metrics   *observe.Metrics
	Logger    *slog.Logger
}

// Controller drives one visualization.
// All methods are safe for concurrent use; frames are drawn one at a time.
type Controller struct {
	cfg       Config
	surface   Surface
	scheduler ports.Scheduler
	sampler   ports.AudioSampler
	bus       ports.EventBus
	metrics   *observe.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	flags      domain.Flags
	transition domain.TransitionState
	style      domain.Style
	renderer   render.Renderer
	elapsed    time.Duration
	frames     uint64
	running    bool
	pending    ports.FrameID
	gen        uint64 // invalidates frame callbacks issued before the last Start/Stop

	// frameMu serializes Tick.
	frameMu sync.Mutex
	failing bool
}

// New creates a stopped controller in the idle state.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Surface == nil {
		return nil, errors.New("controller: surface is required")
	}
	if deps.Scheduler == nil {
		return nil, errors.New("controller: scheduler is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.Discard()
	}

	c := &Controller{
		cfg:        cfg,
		surface:    deps.Surface,
		scheduler:  deps.Scheduler,
		sampler:    deps.Sampler,
		bus:        deps.Bus,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With(slog.String("component", "controller")),
		transition: domain.NewTransitionState(domain.StateIdle, cfg.TransitionDuration),
	}

	style, err := c.resolveStyle(cfg.Style)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(style, render.Deps{Seed: cfg.Seed})
	if err != nil {
		return nil, err
	}
	c.style = style
	c.renderer = renderer
	return c, nil
}

// resolveStyle applies the strict or fallback policy to an unknown style.
func (c *Controller) resolveStyle(style domain.Style) (domain.Style, error) {
	if style.Valid() {
		return style, nil
	}
	if c.cfg.Strict {
		return style, fmt.Errorf("%w: %s", domain.ErrUnsupportedStyle, style)
	}
	c.logger.Warn("unsupported style, falling back",
		slog.String("requested", style.String()),
		slog.String("style", domain.DefaultStyle.String()))
	return domain.DefaultStyle, nil
}

// SetFlags updates the host flags and retargets the transition when the
// resolved state changes. Active alone never changes the target.
func (c *Controller) SetFlags(flags domain.Flags) {
	c.mu.Lock()
	c.flags = flags
	from := c.transition.Target
	next, changed := c.transition.Retarget(flags.Target())
	c.transition = next
	c.mu.Unlock()

	if !changed {
		return
	}
	c.logger.Debug("visual state changed",
		slog.String("from", from.String()),
		slog.String("to", next.Target.String()))
	c.metrics.RecordTransition(context.Background(), from.String(), next.Target.String())
	c.publish(domain.NewVisualStateChangedEvent(from, next.Target))
}

// Flags returns the last flags set.
func (c *Controller) Flags() domain.Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// SetStyle switches the renderer. Unknown styles return
// domain.ErrUnsupportedStyle in strict mode and fall back to the default style
// otherwise. The new renderer starts with no carried state.
func (c *Controller) SetStyle(style domain.Style) error {
	effective, err := c.resolveStyle(style)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if effective == c.style && style == effective {
		c.mu.Unlock()
		return nil
	}
	renderer, err := render.New(effective, render.Deps{Seed: c.cfg.Seed})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.style = effective
	c.renderer = renderer
	c.mu.Unlock()

	c.logger.Info("style changed", slog.String("style", effective.String()))
	c.publish(domain.NewStyleChangedEvent(effective, style))
	return nil
}

// SetStyleName parses a style key and calls SetStyle.
// In fallback mode an unknown key selects the default style.
func (c *Controller) SetStyleName(name string) error {
	style, err := domain.ParseStyle(name)
	if err != nil {
		if c.cfg.Strict {
			return err
		}
		c.logger.Warn("unsupported style, falling back",
			slog.String("requested", name),
			slog.String("style", domain.DefaultStyle.String()))
	}
	return c.SetStyle(style)
}

// Style returns the active style.
func (c *Controller) Style() domain.Style {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.style
}

// State returns a copy of the transition state.
func (c *Controller) State() domain.TransitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition
}

// Frames returns the number of frames ticked so far.
func (c *Controller) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Running reports whether the frame loop is scheduled.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start schedules the frame loop. Calling Start on a running controller does nothing.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	c.running = true
	if err := c.scheduleLocked(); err != nil {
		c.running = false
		return err
	}
	c.logger.Debug("frame loop started", slog.String("style", c.style.String()))
	return nil
}

// Stop cancels the pending frame. No callback fires after Stop returns,
// except one that was already running.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false
	c.gen++
	if c.pending != 0 {
		c.scheduler.CancelFrame(c.pending)
		c.pending = 0
	}
	c.logger.Debug("frame loop stopped", slog.Uint64("frames", c.frames))
}

func (c *Controller) scheduleLocked() error {
	c.gen++
	gen := c.gen
	id, err := c.scheduler.RequestFrame(func(delta time.Duration) {
		c.onFrame(gen, delta)
	})
	if err != nil {
		return fmt.Errorf("request frame: %w", err)
	}
	c.pending = id
	return nil
}

func (c *Controller) onFrame(gen uint64, delta time.Duration) {
	c.mu.Lock()
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.pending = 0
	c.mu.Unlock()

	c.Tick(delta)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || gen != c.gen {
		return
	}
	if err := c.scheduleLocked(); err != nil {
		c.running = false
		c.logger.Warn("frame loop ended", slog.Any("error", err))
	}
}

// Tick renders one frame after delta has passed.
// Render failures are reported on the event bus, the log and the metrics; they
// never propagate to the caller.
func (c *Controller) Tick(delta time.Duration) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	if delta < 0 {
		delta = 0
	}

	c.mu.Lock()
	c.transition = c.transition.Advance(delta)
	c.elapsed += delta
	c.frames++
	frameNo := c.frames
	style, renderer := c.style, c.renderer
	opts := render.Options{
		Current:  c.transition.Current,
		Target:   c.transition.Target,
		Progress: c.transition.Progress,
		Elapsed:  c.elapsed,
		Delta:    delta,
		Active:   c.flags.Active,
	}
	c.mu.Unlock()

	ctx := context.Background()
	frame := c.audioFrame(opts.Target)
	if !frame.Empty() {
		c.metrics.AudioLevel.Record(ctx, frame.Level)
	}

	if !c.surface.Ready() {
		c.metrics.RecordSkip(ctx, observe.SkipSurfaceNotReady)
		return
	}
	opts.Quality = c.surface.QualityHint()

	start := time.Now()
	err := c.surface.Draw(func(canvas ports.Canvas) error {
		return c.render(renderer, style, canvas, frame, opts)
	})

	switch {
	case err == nil:
		c.metrics.RecordFrame(ctx, style.String(), time.Since(start))
		if p, ok := renderer.(*render.Particles); ok {
			c.metrics.Particles.Record(ctx, int64(p.Len()))
		}
		if c.failing {
			c.failing = false
			c.logger.Info("rendering recovered", slog.Uint64("frame", frameNo))
		}
	case errors.Is(err, domain.ErrSurfaceEmpty):
		c.metrics.RecordSkip(ctx, observe.SkipSurfaceNotReady)
	default:
		c.reportFailure(ctx, err, frameNo)
	}
}

// audioFrame pulls analysed audio only while listening.
func (c *Controller) audioFrame(target domain.VisualState) domain.AudioFrame {
	if target != domain.StateListening || c.sampler == nil || !c.sampler.Initialized() {
		return domain.AudioFrame{}
	}
	frame, ok := c.sampler.Frame()
	if !ok {
		return domain.AudioFrame{}
	}
	return frame
}

// render calls the renderer, converting errors and panics to *domain.RenderError.
func (c *Controller) render(r render.Renderer, style domain.Style, canvas ports.Canvas, frame domain.AudioFrame, opts render.Options) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &domain.RenderError{Style: style, State: opts.Target, Panic: p}
		}
	}()
	if rerr := r.Render(canvas, frame, opts); rerr != nil {
		return &domain.RenderError{Style: style, State: opts.Target, Err: rerr}
	}
	return nil
}

// reportFailure sends a frame failure down the diagnostics channel.
// Only the first failure of a run is logged at warn level.
func (c *Controller) reportFailure(ctx context.Context, err error, frameNo uint64) {
	kind := "error"
	style := ""
	var rerr *domain.RenderError
	if errors.As(err, &rerr) {
		style = rerr.Style.String()
		if rerr.Panic != nil {
			kind = "panic"
		}
	}

	level := slog.LevelDebug
	if !c.failing {
		level = slog.LevelWarn
		c.failing = true
	}
	c.logger.Log(ctx, level, "frame render failed",
		slog.Any("error", err),
		slog.String("kind", kind),
		slog.Uint64("frame", frameNo))

	c.metrics.RecordError(ctx, style, kind)
	c.publish(domain.NewFrameErrorEvent(err, frameNo))
}

func (c *Controller) publish(event domain.Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}
