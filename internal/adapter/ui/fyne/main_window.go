package fyne

import (
	"errors"
	"sync"
	"sync/atomic"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/wealthwise/voiceviz/internal/adapter/ui/fyne/widgets"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/res"
)

const (
	APPNAME = "VoiceViz"
	WIDTH   = 640
	HEIGHT  = 420
)

// MainWindow is the host window implementing ports.UI.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All logic is in the Presenter
// - User interactions are forwarded to the Presenter
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window

	// UI components
	visualizer      *widgets.Visualizer
	styleSelect     *widget.Select
	activeCheck     *widget.Check
	userCheck       *widget.Check
	aiCheck         *widget.Check
	processingCheck *widget.Check
	stateLabel      *widget.Label
	statusLabel     *widget.Label

	// syncing suppresses change handlers while the presenter updates controls
	syncing atomic.Bool

	// Lifecycle management
	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window around visualizer.
func NewMainWindow(app fyneapp.App, visualizer *widgets.Visualizer) *MainWindow {
	w := &MainWindow{
		app:        app,
		visualizer: visualizer,
	}

	w.window = app.NewWindow(APPNAME)
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(WIDTH, HEIGHT))

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

// SetOnClosed registers a callback run after the window closes.
func (w *MainWindow) SetOnClosed(fn func()) {
	w.window.SetOnClosed(fn)
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	labels := make([]string, 0, len(domain.Styles))
	for _, s := range domain.Styles {
		labels = append(labels, s.Label())
	}
	w.styleSelect = widget.NewSelect(labels, nil)

	w.activeCheck = widget.NewCheck("Active", nil)
	w.userCheck = widget.NewCheck("User speaking", nil)
	w.aiCheck = widget.NewCheck("Assistant speaking", nil)
	w.processingCheck = widget.NewCheck("Processing", nil)

	w.stateLabel = widget.NewLabel(domain.StateIdle.String())
	w.stateLabel.TextStyle = fyneapp.TextStyle{Bold: true}

	w.statusLabel = widget.NewLabel("")
	w.statusLabel.Truncation = fyneapp.TextTruncateEllipsis

	flags := container.NewHBox(w.activeCheck, w.userCheck, w.aiCheck, w.processingCheck)
	header := container.NewBorder(nil, nil, w.styleSelect, w.stateLabel, flags)
	content := container.NewBorder(header, w.statusLabel, nil, nil, w.visualizer)
	w.window.SetContent(container.NewPadded(content))

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.styleSelect.OnChanged = func(label string) {
		if w.syncing.Load() {
			return
		}
		w.presenter.OnStyleSelected(label)
	}

	onFlag := func(bool) {
		if w.syncing.Load() {
			return
		}
		w.presenter.OnFlagsChanged(w.flags())
	}
	w.activeCheck.OnChanged = onFlag
	w.userCheck.OnChanged = onFlag
	w.aiCheck.OnChanged = onFlag
	w.processingCheck.OnChanged = onFlag
}

// flags reads the toggles.
func (w *MainWindow) flags() domain.Flags {
	return domain.Flags{
		Active:       w.activeCheck.Checked,
		UserSpeaking: w.userCheck.Checked,
		AISpeaking:   w.aiCheck.Checked,
		Processing:   w.processingCheck.Checked,
	}
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	styleItems := make([]*fyneapp.MenuItem, 0, len(domain.Styles))
	for _, s := range domain.Styles {
		label := s.Label()
		styleItems = append(styleItems, fyneapp.NewMenuItem(label, func() {
			w.styleSelect.SetSelected(label)
		}))
	}

	about := fyneapp.NewMenuItem("About", func() {
		body := widget.NewRichTextFromMarkdown(res.AboutContent)
		dialog.ShowCustom("About "+APPNAME, "Close", body, w.window)
	})

	return []*fyneapp.Menu{
		fyneapp.NewMenu("Style", styleItems...),
		fyneapp.NewMenu("Help", about),
	}
}

// addShortcuts binds Alt+1..4 to the styles.
func (w *MainWindow) addShortcuts() {
	keys := []fyneapp.KeyName{fyneapp.Key1, fyneapp.Key2, fyneapp.Key3, fyneapp.Key4}
	for i, s := range domain.Styles {
		if i >= len(keys) {
			break
		}
		label := s.Label()
		w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
			KeyName:  keys[i],
			Modifier: fyneapp.KeyModifierAlt,
		}, func(fyneapp.Shortcut) {
			w.styleSelect.SetSelected(label)
		})
	}
}

// Run shows the window and runs the application.
func (w *MainWindow) Run() error {
	w.window.ShowAndRun()
	return nil
}

// Quit closes the window. It's safe to call multiple times (idempotent).
func (w *MainWindow) Quit() {
	w.closeOnce.Do(func() {
		fyneapp.Do(w.window.Close)
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// ports.UI implementation. Calls arrive from the frame loop, so every
// widget update is marshalled onto the UI thread.

// SetStyle selects style in the picker.
func (w *MainWindow) SetStyle(style domain.Style) {
	fyneapp.Do(func() {
		w.syncing.Store(true)
		defer w.syncing.Store(false)
		w.styleSelect.SetSelected(style.Label())
	})
}

// SetFlags updates the toggles.
func (w *MainWindow) SetFlags(flags domain.Flags) {
	fyneapp.Do(func() {
		w.syncing.Store(true)
		defer w.syncing.Store(false)
		w.activeCheck.SetChecked(flags.Active)
		w.userCheck.SetChecked(flags.UserSpeaking)
		w.aiCheck.SetChecked(flags.AISpeaking)
		w.processingCheck.SetChecked(flags.Processing)
	})
}

// SetVisualState shows the target state.
func (w *MainWindow) SetVisualState(state domain.VisualState) {
	fyneapp.Do(func() {
		w.stateLabel.SetText(state.String())
	})
}

// SetStatus replaces the status line.
func (w *MainWindow) SetStatus(message string) {
	fyneapp.Do(func() {
		w.statusLabel.SetText(message)
	})
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowError(errors.New(title+": "+message), w.window)
	})
}

// Verify ports.UI implementation
var _ ports.UI = (*MainWindow)(nil)
