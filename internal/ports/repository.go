package ports

import (
	"github.com/wealthwise/voiceviz/internal/domain"
)

// PreferencesRepository persists the viewer's choices between runs.
// This abstracts the Fyne preferences storage.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveStyle persists the selected visualization style.
	SaveStyle(style domain.Style) error

	// LoadStyle retrieves the saved style.
	// If nothing was saved, returns domain.DefaultStyle and domain.ErrNoPreference.
	// A stored key that no longer names a style returns domain.DefaultStyle
	// and an error wrapping domain.ErrUnsupportedStyle.
	LoadStyle() (domain.Style, error)

	// SaveDevice persists the capture device name. An empty name means the system default.
	SaveDevice(name string) error

	// LoadDevice retrieves the saved capture device name, or "" if none.
	LoadDevice() (string, error)

	// SaveRecentFiles persists the most recently replayed audio files, newest first.
	SaveRecentFiles(paths []string) error

	// LoadRecentFiles retrieves the recent files. Returns an empty slice if none.
	LoadRecentFiles() ([]string, error)

	// Clear removes all saved preferences.
	Clear() error
}
