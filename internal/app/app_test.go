package app

import (
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/adapter/capture/synthetic"
	"github.com/wealthwise/voiceviz/internal/adapter/repository/memory"
	"github.com/wealthwise/voiceviz/internal/config"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/testutil"
)

// headlessConfig renders a small synthetic visualization.
func headlessConfig(manual bool) Config {
	settings := config.Default()
	settings.Log.Level = "error"
	settings.Capture.Source = config.SourceSynthetic
	settings.Visual.Width = 64
	settings.Visual.Height = 32
	settings.Visual.Quality = config.QualityHigh
	settings.Visual.Seed = 7

	cfg := DefaultConfig()
	cfg.Settings = settings
	cfg.Headless = true
	cfg.Manual = manual
	cfg.LogOutput = io.Discard
	return cfg
}

func newHeadless(t *testing.T, cfg Config) *Application {
	t.Helper()
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "com.wealthwise.voiceviz", cfg.AppID)
	require.NotNil(t, cfg.Settings)
	assert.Equal(t, config.SourceMicrophone, cfg.Settings.Capture.Source)
	assert.False(t, cfg.Headless)
	assert.False(t, cfg.Manual)
	assert.True(t, cfg.RestoreStyle)
}

func TestApplicationLifecycle(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	app, err := NewApplication(headlessConfig(true))
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.NotNil(t, app.Controller())
	assert.NotNil(t, app.Sampler())
	assert.NotNil(t, app.GetEventBus())
	assert.Nil(t, app.GetFyneApp())
	assert.True(t, app.Surface().Ready())

	assert.NoError(t, app.Shutdown())
	assert.NoError(t, app.Shutdown())
}

func TestNewApplication_InvalidSettings(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		cfg := headlessConfig(true)
		cfg.Settings.Capture.Source = "bluetooth"
		_, err := NewApplication(cfg)
		assert.ErrorContains(t, err, "bluetooth")
	})

	t.Run("strict unknown style", func(t *testing.T) {
		cfg := headlessConfig(true)
		cfg.Settings.Visual.Style = "lava"
		cfg.Settings.Visual.Strict = true
		_, err := NewApplication(cfg)
		assert.ErrorIs(t, err, domain.ErrUnsupportedStyle)
	})

	t.Run("lenient unknown style", func(t *testing.T) {
		cfg := headlessConfig(true)
		cfg.Settings.Visual.Style = "lava"
		app := newHeadless(t, cfg)
		assert.Equal(t, domain.DefaultStyle, app.Controller().Style())
	})

}

func TestNewApplication_EmptySurfaceSkipsFrames(t *testing.T) {
	cfg := headlessConfig(true)
	cfg.Settings.Visual.Width = 0
	app := newHeadless(t, cfg)
	assert.False(t, app.Surface().Ready())

	written, err := app.RenderFrames(context.Background(), RenderOptions{
		Frames: 3,
		Dir:    t.TempDir(),
		Flags:  domain.Flags{Processing: true},
	})
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, uint64(3), app.Controller().Frames())
}

func TestNewApplication_FailureReleasesResources(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	cfg := headlessConfig(false)
	cfg.Settings.Visual.Style = "lava"
	cfg.Settings.Visual.Strict = true
	_, err := NewApplication(cfg)
	require.ErrorIs(t, err, domain.ErrUnsupportedStyle)
}

func TestRelease_ShutsDownMetrics(t *testing.T) {
	app, err := NewApplication(headlessConfig(false))
	require.NoError(t, err)

	app.release()

	// A second shutdown reports the provider as already stopped.
	assert.Error(t, app.meterProvider.Shutdown(context.Background()))
}

func TestNewApplication_DoesNotMutateSettings(t *testing.T) {
	cfg := headlessConfig(true)
	cfg.Settings.Visual.Style = "bars"

	app := newHeadless(t, cfg)
	assert.Equal(t, domain.StyleBars, app.Controller().Style())
	assert.Equal(t, "bars", cfg.Settings.Visual.Style)
}

func TestRenderFrames_WritesSnapshots(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	cfg := headlessConfig(true)
	cfg.Settings.Visual.Style = domain.StyleBars.String()
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	defer app.Shutdown()

	dir := t.TempDir()
	written, err := app.RenderFrames(context.Background(), RenderOptions{
		Frames: 12,
		Every:  4,
		Dir:    dir,
		Flags:  domain.Flags{Active: true, UserSpeaking: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, written)
	assert.Equal(t, uint64(12), app.Controller().Frames())
	assert.True(t, app.Sampler().Initialized())

	files, err := filepath.Glob(filepath.Join(dir, "frame-*.png"))
	require.NoError(t, err)
	assert.Len(t, files, 3)

	f, err := os.Open(filepath.Join(dir, "frame-00012.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestRenderFrames_Script(t *testing.T) {
	app := newHeadless(t, headlessConfig(true))

	_, err := app.RenderFrames(context.Background(), RenderOptions{
		Frames: 30,
		Flags:  domain.Flags{Active: true},
		Script: map[int]domain.Flags{
			10: {Active: true, AISpeaking: true},
			20: {Active: true, Processing: true},
		},
	})
	require.NoError(t, err)

	state := app.Controller().State()
	assert.Equal(t, domain.StateSpeaking, state.Current)
	assert.Equal(t, domain.StateProcessing, state.Target)
	assert.Greater(t, state.Progress, 0.0)
	assert.Less(t, state.Progress, 1.0)
}

func TestRenderFrames_CaptureFailureIsNotFatal(t *testing.T) {
	src := synthetic.New()
	src.SetFailOpen(synthetic.ErrPermissionDenied)

	cfg := headlessConfig(true)
	cfg.Device = src
	app := newHeadless(t, cfg)

	var failed []domain.Event
	app.GetEventBus().Subscribe(domain.EventSamplerFailed, func(e domain.Event) {
		failed = append(failed, e)
	})

	_, err := app.RenderFrames(context.Background(), RenderOptions{
		Frames: 5,
		Flags:  domain.Flags{UserSpeaking: true},
	})
	require.NoError(t, err)
	assert.False(t, app.Sampler().Initialized())
	assert.Equal(t, uint64(5), app.Controller().Frames())
	assert.Len(t, failed, 1)
}

func TestRenderFrames_Cancelled(t *testing.T) {
	app := newHeadless(t, headlessConfig(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := app.RenderFrames(ctx, RenderOptions{Frames: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStep_RequiresManualMode(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	app, err := NewApplication(headlessConfig(false))
	require.NoError(t, err)

	assert.ErrorIs(t, app.Step(time.Millisecond), ErrNotManual)
	_, err = app.RenderFrames(context.Background(), RenderOptions{Frames: 1})
	assert.ErrorIs(t, err, ErrNotManual)

	require.NoError(t, app.Shutdown())
}

func TestRunHeadless(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	app, err := NewApplication(headlessConfig(false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunHeadless(ctx) }()

	require.Eventually(t, func() bool {
		return app.Controller().Frames() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunHeadless did not return after cancel")
	}
	assert.False(t, app.Controller().Running())

	require.NoError(t, app.Shutdown())
}

func TestRunHeadless_ServesMetrics(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreHTTPGoroutines()...)

	cfg := headlessConfig(false)
	cfg.Settings.Metrics.Enabled = true
	cfg.Settings.Metrics.Addr = "127.0.0.1:0"
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunHeadless(ctx) }()

	require.Eventually(t, func() bool {
		return app.Controller().Frames() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, app.Shutdown())
}

func TestMetricsHandler(t *testing.T) {
	app := newHeadless(t, headlessConfig(true))

	_, err := app.RenderFrames(context.Background(), RenderOptions{
		Frames: 3,
		Flags:  domain.Flags{Processing: true},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "voiceviz_frames_rendered")
	assert.Contains(t, body, "voiceviz_state_transitions")
	assert.Contains(t, body, `style="waveform"`)
}

func TestNewApplication_Windowed(t *testing.T) {
	fyneApp := test.NewApp()
	prefs := memory.NewPreferencesRepository(fyneApp.Preferences())
	require.NoError(t, prefs.SaveStyle(domain.StyleCircular))

	cfg := headlessConfig(true)
	cfg.Headless = false
	cfg.TestFyneApp = fyneApp

	app := newHeadless(t, cfg)
	assert.Same(t, fyneApp, app.GetFyneApp())
	assert.Equal(t, domain.StyleCircular, app.Controller().Style())
}

func TestRun_RequiresWindow(t *testing.T) {
	app := newHeadless(t, headlessConfig(true))
	assert.ErrorContains(t, app.Run(), "headless")
}

func TestNewApplication_WindowedRemembersFile(t *testing.T) {
	fyneApp := test.NewApp()
	prefs := memory.NewPreferencesRepository(fyneApp.Preferences())
	require.NoError(t, prefs.SaveRecentFiles([]string{"b.wav", "a.wav"}))

	cfg := headlessConfig(true)
	cfg.Headless = false
	cfg.TestFyneApp = fyneApp
	cfg.Settings.Capture.Source = config.SourceFile
	cfg.Settings.Capture.File = "a.wav"

	newHeadless(t, cfg)

	recent, err := prefs.LoadRecentFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.wav", "b.wav"}, recent)
}
