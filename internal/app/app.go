// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wealthwise/voiceviz/internal/adapter/capture/file"
	"github.com/wealthwise/voiceviz/internal/adapter/capture/microphone"
	"github.com/wealthwise/voiceviz/internal/adapter/capture/synthetic"
	"github.com/wealthwise/voiceviz/internal/adapter/draw/raster"
	"github.com/wealthwise/voiceviz/internal/adapter/eventbus"
	"github.com/wealthwise/voiceviz/internal/adapter/repository/memory"
	fyneui "github.com/wealthwise/voiceviz/internal/adapter/ui/fyne"
	"github.com/wealthwise/voiceviz/internal/adapter/ui/fyne/widgets"
	"github.com/wealthwise/voiceviz/internal/config"
	"github.com/wealthwise/voiceviz/internal/controller"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/logger"
	"github.com/wealthwise/voiceviz/internal/observe"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/sampler"
	"github.com/wealthwise/voiceviz/internal/scheduler"
	"github.com/wealthwise/voiceviz/internal/service"
	"github.com/wealthwise/voiceviz/internal/surface"
)

// sourceInterval is the block pacing of the synthetic source in live runs.
const sourceInterval = 10 * time.Millisecond

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger   *slog.Logger
	settings *config.Config

	// Infrastructure
	eventBus  *eventbus.SyncBus
	device    ports.CaptureDevice
	scheduler ports.Scheduler

	// Metrics
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider
	metrics       *observe.Metrics

	// Pipeline
	sampler    *sampler.Sampler
	surface    *surface.Surface
	controller *controller.Controller

	// UI (nil in headless runs)
	fyneApp     fyne.App
	preferences *service.PreferenceService
	visualizer  *widgets.Visualizer
	mainWindow  *fyneui.MainWindow
	presenter   *fyneui.Presenter

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// Settings is the loaded configuration file. Nil uses config.Default().
	Settings *config.Config

	// Headless skips the Fyne window; the surface is sized from Settings.Visual.
	Headless bool

	// Manual drives frames through Step instead of a ticker.
	// Synthetic and file sources then produce samples only when stepped.
	Manual bool

	// RestoreStyle applies the style saved by the previous run (windowed runs only).
	RestoreStyle bool

	// Device overrides the capture source selected by Settings (for testing)
	Device ports.CaptureDevice

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		AppID:        "com.wealthwise.voiceviz",
		Settings:     config.Default(),
		RestoreStyle: true,
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
// On failure every resource created so far is released.
func NewApplication(cfg Config) (_ *Application, err error) {
	settings := config.Default()
	if cfg.Settings != nil {
		copied := *cfg.Settings
		settings = &copied
	}
	app := &Application{settings: settings}

	// Step 1: Create logger
	level, err := logger.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, err
	}
	app.logger = logger.NewLogger(logger.Config{
		Level:  level,
		Format: settings.Log.Format,
		Output: cfg.LogOutput,
	})
	app.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().FullString()),
		slog.Bool("headless", cfg.Headless),
		slog.String("source", settings.Capture.Source))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncBus(app.component("eventbus"))
	defer func() {
		if err != nil {
			app.release()
		}
	}()

	// Step 3: Create metrics
	app.registry = prometheus.NewRegistry()
	app.meterProvider, err = observe.InitProvider(observe.ProviderConfig{
		ServiceVersion: GetVersionInfo().Version,
		Registerer:     app.registry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if app.metrics, err = observe.NewMetrics(app.meterProvider); err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	// Step 4: Create the Fyne application and repositories
	if !cfg.Headless {
		if cfg.TestFyneApp != nil {
			app.fyneApp = cfg.TestFyneApp
		} else {
			app.fyneApp = fyneapp.NewWithID(cfg.AppID)
		}
		app.preferences = service.NewPreferenceService(
			app.component("preferences"),
			memory.NewPreferencesRepository(app.fyneApp.Preferences()),
		)
		app.applySavedDevice()
	}

	// Step 5: Create the capture device and sampler
	app.device = cfg.Device
	if app.device == nil {
		if app.device, err = app.newCaptureDevice(cfg.Manual); err != nil {
			return nil, err
		}
	}
	app.sampler = sampler.New(app.device, sampler.Options{
		Capture: settings.Capture.PortsCapture(),
		Logger:  app.logger,
		Bus:     app.eventBus,
	})

	// Step 6: Create the drawing surface
	app.surface = surface.New(raster.New(0, 0), surface.Options{
		Probe:  probeFor(settings.Visual),
		Logger: app.logger,
		Bus:    app.eventBus,
	})
	var target controller.Surface = app.surface
	if cfg.Headless {
		// A zero size leaves the surface not ready; the controller then skips frames.
		if _, err := app.surface.Resize(settings.Visual.Width, settings.Visual.Height); err != nil {
			app.logger.Warn("headless surface has no area, frames will be skipped",
				slog.Float64("width", settings.Visual.Width),
				slog.Float64("height", settings.Visual.Height))
		}
	} else {
		app.visualizer = widgets.NewVisualizer(app.surface, app.component("visualizer"))
		target = app.visualizer
	}

	// Step 7: Create the scheduler
	if cfg.Manual {
		app.scheduler = scheduler.NewManual()
	} else {
		app.scheduler = scheduler.NewTicker(settings.Visual.FrameRate, app.component("scheduler"))
	}

	// Step 8: Create the controller
	app.controller, err = controller.New(controller.Config{
		Strict:             settings.Visual.Strict,
		TransitionDuration: settings.Visual.TransitionDuration,
		Seed:               settings.Visual.Seed,
	}, controller.Deps{
		Surface:   target,
		Scheduler: app.scheduler,
		Sampler:   app.sampler,
		Bus:       app.eventBus,
		Metrics:   app.metrics,
		Logger:    app.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	if err := app.controller.SetStyleName(settings.Visual.Style); err != nil {
		return nil, err
	}

	// Step 9: Create UI and presenter
	if !cfg.Headless {
		app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.visualizer)
		app.presenter = fyneui.NewPresenter(
			app.component("presenter"),
			app.controller,
			app.preferences,
			app.eventBus,
			app.mainWindow,
		)
		app.mainWindow.SetPresenter(app.presenter)
		if cfg.RestoreStyle {
			app.presenter.RestoreStyle()
		}
	}

	return app, nil
}

// component returns the logger of a named component.
func (a *Application) component(name string) *slog.Logger {
	return a.logger.With(slog.String("component", name))
}

// newCaptureDevice builds the source named by the capture settings.
func (a *Application) newCaptureDevice(manual bool) (ports.CaptureDevice, error) {
	capture := a.settings.Capture
	log := a.component("capture")

	switch capture.Source {
	case config.SourceMicrophone:
		return microphone.New(log), nil
	case config.SourceFile:
		opts := []file.Option{file.WithLogger(a.logger)}
		if manual {
			opts = append(opts, file.WithInterval(0))
		}
		a.rememberFile(capture.File)
		return file.New(capture.File, opts...), nil
	case config.SourceSynthetic:
		opts := []synthetic.Option{synthetic.WithLogger(log)}
		if !manual {
			opts = append(opts, synthetic.WithInterval(sourceInterval))
		}
		return synthetic.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", capture.Source)
	}
}

// applySavedDevice uses the saved microphone when the settings name none.
func (a *Application) applySavedDevice() {
	if a.settings.Capture.Source != config.SourceMicrophone || a.settings.Capture.Device != "" {
		return
	}
	a.settings.Capture.Device = a.preferences.GetDevice()
}

// rememberFile moves path to the front of the recent files.
func (a *Application) rememberFile(path string) {
	if a.preferences == nil {
		return
	}
	if err := a.preferences.AddRecentFile(path); err != nil {
		a.logger.Warn("failed to save recent files", slog.Any("error", err))
	}
}

// probeFor maps the quality setting to a capability probe.
func probeFor(v config.VisualConfig) surface.Probe {
	switch v.Quality {
	case config.QualityHigh:
		return surface.Probe{PixelRatio: v.PixelRatio}
	case config.QualityLow:
		return surface.Probe{PixelRatio: v.PixelRatio, Mobile: true}
	default:
		return surface.DetectProbe(v.PixelRatio)
	}
}

// startPipeline opens the capture device and schedules the frame loop.
// A capture failure is not fatal: the visualization keeps running without audio.
func (a *Application) startPipeline(ctx context.Context) error {
	if err := a.sampler.Initialize(ctx); err != nil {
		a.logger.Warn("audio capture unavailable, continuing without audio", slog.Any("error", err))
	} else if a.preferences != nil && a.settings.Capture.Source == config.SourceMicrophone {
		if err := a.preferences.SetDevice(a.settings.Capture.Device); err != nil {
			a.logger.Warn("failed to save device", slog.Any("error", err))
		}
	}
	return a.controller.Start()
}

// Run starts the windowed application.
// This blocks until the window is closed.
func (a *Application) Run() error {
	if a.mainWindow == nil {
		return errors.New("run: application is headless")
	}
	a.logger.Info("VoiceViz started")

	if err := a.startPipeline(context.Background()); err != nil {
		return err
	}
	return a.mainWindow.Run()
}

// Controller returns the visualization controller.
func (a *Application) Controller() *controller.Controller {
	return a.controller
}

// Sampler returns the audio sampler.
func (a *Application) Sampler() *sampler.Sampler {
	return a.sampler
}

// Surface returns the drawing surface.
func (a *Application) Surface() *surface.Surface {
	return a.surface
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetFyneApp returns the Fyne application, or nil in headless runs.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// Registry returns the Prometheus registry the metrics are exported to.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

// Shutdown gracefully shuts down the application.
// This should be called via deferring in main.go. Safe to call multiple times.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		var errs []error

		if a.presenter != nil {
			a.presenter.Shutdown()
		}

		// Stop drawing before the sampler goes away.
		a.controller.Stop()
		a.closeScheduler()

		if err := a.sampler.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose sampler: %w", err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}

		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// release frees what a failed NewApplication created so far.
func (a *Application) release() {
	if a.scheduler != nil {
		a.closeScheduler()
	}
	if a.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down metrics", slog.Any("error", err))
		}
	}
	if err := a.eventBus.Close(); err != nil {
		a.logger.Warn("failed to close event bus", slog.Any("error", err))
	}
}

// closeScheduler stops the ticker goroutine, if any.
func (a *Application) closeScheduler() {
	closer, ok := a.scheduler.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil && !errors.Is(err, domain.ErrSchedulerClosed) {
		a.logger.Warn("failed to close scheduler", slog.Any("error", err))
	}
}
