package fyne

import (
	"testing"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/adapter/draw/trace"
	"github.com/wealthwise/voiceviz/internal/adapter/eventbus"
	"github.com/wealthwise/voiceviz/internal/adapter/repository/memory"
	"github.com/wealthwise/voiceviz/internal/adapter/ui/fyne/widgets"
	"github.com/wealthwise/voiceviz/internal/controller"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/scheduler"
	"github.com/wealthwise/voiceviz/internal/service"
	"github.com/wealthwise/voiceviz/internal/surface"
)

func newTestWindow(t *testing.T) (*MainWindow, *controller.Controller, *widgets.Visualizer, *trace.Canvas) {
	t.Helper()

	app := test.NewApp()
	bus := eventbus.NewSyncBus(nil)
	backing := trace.New(1, 1)
	viz := widgets.NewVisualizer(surface.New(backing, surface.Options{}), nil)

	sched := scheduler.NewManual()
	ctrl, err := controller.New(controller.Config{}, controller.Deps{
		Surface:   viz,
		Scheduler: sched,
		Bus:       bus,
	})
	require.NoError(t, err)

	w := NewMainWindow(app, viz)
	p := NewPresenter(nil, ctrl, service.NewPreferenceService(nil, memory.NewPreferencesRepository(app.Preferences())), bus, w)
	w.SetPresenter(p)

	t.Cleanup(func() {
		p.Shutdown()
		w.Quit()
		_ = bus.Close()
	})
	return w, ctrl, viz, backing
}

func TestMainWindow_TogglesDriveController(t *testing.T) {
	w, ctrl, _, _ := newTestWindow(t)

	test.Tap(w.userCheck)
	assert.Equal(t, domain.StateListening, ctrl.State().Target)
	assert.Equal(t, domain.StateListening.String(), w.stateLabel.Text)

	test.Tap(w.processingCheck)
	assert.Equal(t, domain.StateProcessing, ctrl.State().Target)

	assert.Equal(t, domain.Flags{UserSpeaking: true, Processing: true}, ctrl.Flags())
}

func TestMainWindow_StyleSelect(t *testing.T) {
	w, ctrl, _, _ := newTestWindow(t)
	assert.Equal(t, domain.StyleWaveform.Label(), w.styleSelect.Selected)

	w.styleSelect.SetSelected(domain.StyleBars.Label())
	assert.Equal(t, domain.StyleBars, ctrl.Style())
}

func TestMainWindow_SyncDoesNotEcho(t *testing.T) {
	w, ctrl, _, _ := newTestWindow(t)

	w.SetFlags(domain.Flags{AISpeaking: true})
	assert.True(t, w.aiCheck.Checked)
	assert.Equal(t, domain.StateIdle, ctrl.State().Target)

	w.SetStyle(domain.StyleCircular)
	assert.Equal(t, domain.StyleCircular.Label(), w.styleSelect.Selected)
	assert.Equal(t, domain.StyleWaveform, ctrl.Style())
}

func TestVisualizer_ResizeDrivesSurface(t *testing.T) {
	_, ctrl, viz, backing := newTestWindow(t)

	viz.Resize(fyneapp.NewSize(0, 0))
	assert.False(t, viz.Ready())

	viz.Resize(fyneapp.NewSize(300, 150))
	require.True(t, viz.Ready())
	bw, bh := backing.BackingSize()
	assert.Positive(t, bw)
	assert.Equal(t, bw, 2*bh)

	ctrl.Tick(16_000_000)
	assert.Positive(t, backing.Count(trace.OpClear))
	assert.Equal(t, uint64(1), ctrl.Frames())
}

