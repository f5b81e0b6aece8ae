// Package service provides the stateful use cases that sit between the UI and the repositories.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// MaxRecentFiles bounds the recent file list.
const MaxRecentFiles = 10

// PreferenceService manages the viewer's saved choices.
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	logger     *slog.Logger
	repository ports.PreferencesRepository

	// Cached preferences
	style       domain.Style
	styleSaved  bool
	device      string
	recentFiles []string

	mu sync.RWMutex
}

// NewPreferenceService creates a new preference service and loads the saved values.
func NewPreferenceService(logger *slog.Logger, repository ports.PreferencesRepository) *PreferenceService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &PreferenceService{
		logger:     logger,
		repository: repository,
		style:      domain.DefaultStyle,
	}
	s.loadPreferences()
	logger.Debug("preference service initialized",
		slog.String("style", s.style.String()),
		slog.Bool("style_saved", s.styleSaved))
	return s
}

func (s *PreferenceService) loadPreferences() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch style, err := s.repository.LoadStyle(); {
	case errors.Is(err, domain.ErrNoPreference):
	case err != nil:
		s.logger.Warn("ignoring saved style", slog.Any("error", err))
	default:
		s.style = style
		s.styleSaved = true
	}

	if device, err := s.repository.LoadDevice(); err == nil {
		s.device = device
	}

	if recent, err := s.repository.LoadRecentFiles(); err == nil {
		s.recentFiles = recent
	}
}

// GetStyle returns the saved style and whether it is usable.
// A missing or stale entry reports domain.DefaultStyle and false.
func (s *PreferenceService) GetStyle() (domain.Style, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style, s.styleSaved
}

// SetStyle saves the selected style.
func (s *PreferenceService) SetStyle(style domain.Style) error {
	if !style.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedStyle, style)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.styleSaved && s.style == style {
		return nil
	}
	if err := s.repository.SaveStyle(style); err != nil {
		return err
	}
	s.style = style
	s.styleSaved = true

	s.logger.Debug("style saved", slog.String("style", style.String()))
	return nil
}

// GetDevice returns the saved capture device name, or "" for the system default.
func (s *PreferenceService) GetDevice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// SetDevice saves the capture device name.
func (s *PreferenceService) SetDevice(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == name {
		return nil
	}
	if err := s.repository.SaveDevice(name); err != nil {
		return err
	}
	s.device = name
	return nil
}

// GetRecentFiles returns a copy of the recent files, newest first.
func (s *PreferenceService) GetRecentFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recentFiles)
}

// AddRecentFile moves path to the front of the recent files.
// The list keeps at most MaxRecentFiles entries.
func (s *PreferenceService) AddRecentFile(path string) error {
	if path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := slices.DeleteFunc(slices.Clone(s.recentFiles), func(p string) bool { return p == path })
	recent = append([]string{path}, recent...)
	if len(recent) > MaxRecentFiles {
		recent = recent[:MaxRecentFiles]
	}
	if err := s.repository.SaveRecentFiles(recent); err != nil {
		return err
	}
	s.recentFiles = recent
	return nil
}

// ResetToDefaults clears every saved preference.
func (s *PreferenceService) ResetToDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repository.Clear(); err != nil {
		return err
	}
	s.style = domain.DefaultStyle
	s.styleSaved = false
	s.device = ""
	s.recentFiles = nil

	s.logger.Info("preferences reset to defaults")
	return nil
}

// GetAllPreferences returns every cached preference, keyed by name.
func (s *PreferenceService) GetAllPreferences() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"style":        s.style.String(),
		"device":       s.device,
		"recent_files": slices.Clone(s.recentFiles),
	}
}
