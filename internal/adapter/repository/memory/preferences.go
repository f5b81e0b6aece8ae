// Package memory provides repositories over in-process storage.
package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

const (
	keyStyle       = "visualizer.style"
	keyDevice      = "capture.device"
	keyRecentFiles = "capture.recent_files"
)

// maxRecentFiles bounds the recent file list.
const maxRecentFiles = 10

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
//
// Styles are stored by key rather than by number so reordering the style enum
// does not change saved choices.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a preferences repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveStyle persists the selected style.
func (r *PreferencesRepository) SaveStyle(style domain.Style) error {
	if !style.Valid() {
		return fmt.Errorf("save style: %w: %s", domain.ErrUnsupportedStyle, style)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyStyle, style.String())
	return nil
}

// LoadStyle retrieves the saved style.
func (r *PreferencesRepository) LoadStyle() (domain.Style, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := r.prefs.String(keyStyle)
	if key == "" {
		return domain.DefaultStyle, domain.ErrNoPreference
	}
	style, err := domain.ParseStyle(key)
	if err != nil {
		return domain.DefaultStyle, fmt.Errorf("load style: %w", err)
	}
	return style, nil
}

// SaveDevice persists the capture device name.
func (r *PreferencesRepository) SaveDevice(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyDevice, name)
	return nil
}

// LoadDevice retrieves the saved capture device name.
func (r *PreferencesRepository) LoadDevice() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyDevice), nil
}

// SaveRecentFiles persists up to maxRecentFiles paths.
func (r *PreferencesRepository) SaveRecentFiles(paths []string) error {
	if len(paths) > maxRecentFiles {
		paths = paths[:maxRecentFiles]
	}

	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("save recent files: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyRecentFiles, string(data))
	return nil
}

// LoadRecentFiles retrieves the recent files.
func (r *PreferencesRepository) LoadRecentFiles() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyRecentFiles)
	if data == "" {
		return []string{}, nil
	}

	var paths []string
	if err := json.Unmarshal([]byte(data), &paths); err != nil {
		return nil, fmt.Errorf("load recent files: %w", err)
	}
	return paths, nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyStyle)
	r.prefs.RemoveValue(keyDevice)
	r.prefs.RemoveValue(keyRecentFiles)
	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
