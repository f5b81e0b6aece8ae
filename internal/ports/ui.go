// Package ports define the UI interface for view abstraction.
// This interface allows the presenter to update the host window without depending on Fyne directly.
package ports

import (
	"github.com/wealthwise/voiceviz/internal/domain"
)

// UI is the host window around the visualization.
//
// The presenter receives events from the event bus and calls these methods
// to keep the controls in sync with the controller.
//
// Thread-safety: Implementations must accept calls from any goroutine.
// Bus events are published from the frame loop, not the UI thread.
type UI interface {
	// SetStyle selects style in the style picker without firing its change handler.
	SetStyle(style domain.Style)

	// SetFlags updates the conversation flag toggles without firing their change handlers.
	SetFlags(flags domain.Flags)

	// SetVisualState shows the state the visualization is moving towards.
	SetVisualState(state domain.VisualState)

	// SetStatus replaces the status line.
	SetStatus(message string)

	// ShowNotification displays a transient notification.
	ShowNotification(title, message string)

	// ShowError displays an error dialog.
	ShowError(title, message string)

	// Run shows the window and blocks until it is closed.
	Run() error

	// Quit closes the window. Safe to call multiple times.
	Quit()
}
