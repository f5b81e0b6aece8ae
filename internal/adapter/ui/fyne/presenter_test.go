package fyne

import (
	"errors"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/adapter/draw/trace"
	"github.com/wealthwise/voiceviz/internal/adapter/eventbus"
	"github.com/wealthwise/voiceviz/internal/adapter/repository/memory"
	"github.com/wealthwise/voiceviz/internal/controller"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/logger"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/scheduler"
	"github.com/wealthwise/voiceviz/internal/service"
	"github.com/wealthwise/voiceviz/internal/surface"
)

// recordingView is a ports.UI that remembers what it was told.
type recordingView struct {
	mu            sync.Mutex
	style         domain.Style
	flags         domain.Flags
	state         domain.VisualState
	statuses      []string
	notifications []string
	errors        []string
}

func (v *recordingView) SetStyle(style domain.Style) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.style = style
}

func (v *recordingView) SetFlags(flags domain.Flags) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flags = flags
}

func (v *recordingView) SetVisualState(state domain.VisualState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
}

func (v *recordingView) SetStatus(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, message)
}

func (v *recordingView) ShowNotification(title, _ string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications, title)
}

func (v *recordingView) ShowError(title, _ string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, title)
}

func (v *recordingView) Run() error { return nil }
func (v *recordingView) Quit()      {}

var _ ports.UI = (*recordingView)(nil)

type presenterHarness struct {
	bus       *eventbus.SyncBus
	ctrl      *controller.Controller
	prefs     *memory.PreferencesRepository
	view      *recordingView
	presenter *Presenter
}

func newPresenterHarness(t *testing.T, cfg controller.Config) *presenterHarness {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncBus(log)
	surf := surface.New(trace.New(1, 1), surface.Options{Logger: log})
	_, err := surf.Resize(200, 100)
	require.NoError(t, err)

	ctrl, err := controller.New(cfg, controller.Deps{
		Surface:   surf,
		Scheduler: scheduler.NewManual(),
		Bus:       bus,
		Logger:    log,
	})
	require.NoError(t, err)

	h := &presenterHarness{
		bus:   bus,
		ctrl:  ctrl,
		prefs: memory.NewPreferencesRepository(test.NewApp().Preferences()),
		view:  &recordingView{style: domain.Style(-1)},
	}
	h.presenter = NewPresenter(log, ctrl, service.NewPreferenceService(log, h.prefs), bus, h.view)
	t.Cleanup(func() {
		h.presenter.Shutdown()
		_ = bus.Close()
	})
	return h
}

func TestPresenter_SyncsInitialState(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{Style: domain.StyleBars})

	assert.Equal(t, domain.StyleBars, h.view.style)
	assert.Equal(t, domain.Flags{}, h.view.flags)
	assert.Equal(t, domain.StateIdle, h.view.state)
}

func TestPresenter_FlagsReachController(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	h.presenter.OnFlagsChanged(domain.Flags{Active: true, UserSpeaking: true})

	assert.Equal(t, domain.StateListening, h.ctrl.State().Target)
	assert.Equal(t, domain.StateListening, h.view.state)

	h.presenter.OnFlagsChanged(domain.Flags{Active: true, UserSpeaking: true, Processing: true})
	assert.Equal(t, domain.StateProcessing, h.view.state)
}

func TestPresenter_StyleSelectionIsSaved(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	h.presenter.OnStyleSelected(domain.StyleParticle.Label())

	assert.Equal(t, domain.StyleParticle, h.ctrl.Style())
	assert.Equal(t, domain.StyleParticle, h.view.style)

	saved, err := h.prefs.LoadStyle()
	require.NoError(t, err)
	assert.Equal(t, domain.StyleParticle, saved)
	assert.Empty(t, h.view.errors)
}

func TestPresenter_UnknownStyleLabel(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{Style: domain.StyleCircular})

	h.presenter.OnStyleSelected("Lava Lamp")

	assert.Equal(t, domain.StyleCircular, h.ctrl.Style())
	assert.Equal(t, []string{"Unknown style"}, h.view.errors)

	_, err := h.prefs.LoadStyle()
	assert.ErrorIs(t, err, domain.ErrNoPreference)
}

func TestPresenter_RestoreStyle(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})
	h.presenter.OnStyleSelected(domain.StyleBars.Label())
	require.NoError(t, h.ctrl.SetStyle(domain.StyleWaveform))

	h.presenter.RestoreStyle()

	assert.Equal(t, domain.StyleBars, h.ctrl.Style())
	assert.Equal(t, domain.StyleBars, h.view.style)
}

func TestPresenter_RestoreStyle_NothingSaved(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{Style: domain.StyleCircular})

	h.presenter.RestoreStyle()

	assert.Equal(t, domain.StyleCircular, h.ctrl.Style())
}

func TestPresenter_FallbackNotifies(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	require.NoError(t, h.ctrl.SetStyle(domain.Style(42)))

	assert.Equal(t, domain.DefaultStyle, h.view.style)
	assert.Equal(t, []string{"Style unavailable"}, h.view.notifications)
}

func TestPresenter_SamplerEvents(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	h.bus.Publish(domain.NewSamplerReadyEvent("synthetic", 48000))
	h.bus.Publish(domain.NewSamplerFailedEvent("microphone", domain.ErrCaptureUnavailable))
	h.bus.Publish(domain.NewSamplerDisposedEvent("microphone"))

	assert.Equal(t, []string{
		"Capturing from synthetic at 48000 Hz",
		"Audio capture unavailable",
		"Audio capture stopped",
	}, h.view.statuses)
	assert.Equal(t, []string{"Audio capture unavailable"}, h.view.errors)
}

func TestPresenter_FrameErrorsAreThrottled(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	now := time.Unix(1700000000, 0)
	h.presenter.now = func() time.Time { return now }

	boom := errors.New("boom")
	for i := uint64(1); i <= 30; i++ {
		h.bus.Publish(domain.NewFrameErrorEvent(boom, i))
	}
	now = now.Add(frameErrorInterval)
	h.bus.Publish(domain.NewFrameErrorEvent(boom, 31))

	assert.Equal(t, uint64(31), h.presenter.DroppedFrames())
	assert.Equal(t, []string{
		"Frame 1 dropped (1 total): boom",
		"Frame 31 dropped (31 total): boom",
	}, h.view.statuses)
}

func TestPresenter_ShutdownUnsubscribes(t *testing.T) {
	h := newPresenterHarness(t, controller.Config{})

	h.presenter.Shutdown()
	h.presenter.Shutdown()

	h.bus.Publish(domain.NewSamplerReadyEvent("synthetic", 48000))
	h.presenter.OnFlagsChanged(domain.Flags{AISpeaking: true})

	assert.Empty(t, h.view.statuses)
	assert.Equal(t, domain.StateIdle, h.view.state)
	assert.False(t, h.bus.HasSubscribers(domain.EventSamplerReady))
}
