package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/domain"
)

// Mock preferences repository for testing
type mockPreferencesRepository struct {
	mu      sync.RWMutex
	style   string
	device  string
	recent  []string
	saves   int
	failErr error
}

func newMockPreferencesRepository() *mockPreferencesRepository {
	return &mockPreferencesRepository{}
}

func (m *mockPreferencesRepository) SaveStyle(style domain.Style) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.style = style.String()
	m.saves++
	return nil
}

func (m *mockPreferencesRepository) LoadStyle() (domain.Style, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.style == "" {
		return domain.DefaultStyle, domain.ErrNoPreference
	}
	style, err := domain.ParseStyle(m.style)
	if err != nil {
		return domain.DefaultStyle, err
	}
	return style, nil
}

func (m *mockPreferencesRepository) SaveDevice(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.device = name
	m.saves++
	return nil
}

func (m *mockPreferencesRepository) LoadDevice() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device, nil
}

func (m *mockPreferencesRepository) SaveRecentFiles(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.recent = append([]string(nil), paths...)
	m.saves++
	return nil
}

func (m *mockPreferencesRepository) LoadRecentFiles() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.recent == nil {
		return []string{}, nil
	}
	return m.recent, nil
}

func (m *mockPreferencesRepository) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.style = ""
	m.device = ""
	m.recent = nil
	return nil
}

// prefTestLogger returns a logger that discards output for tests
func prefTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPreferenceService() (*PreferenceService, *mockPreferencesRepository) {
	repo := newMockPreferencesRepository()
	return NewPreferenceService(prefTestLogger(), repo), repo
}

func TestPreferenceService_GetStyle_NothingSaved(t *testing.T) {
	service, _ := newTestPreferenceService()

	style, ok := service.GetStyle()
	assert.False(t, ok)
	assert.Equal(t, domain.DefaultStyle, style)
}

func TestPreferenceService_LoadsSavedValues(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.style = "bars"
	repo.device = "USB Headset"
	repo.recent = []string{"a.wav"}

	service := NewPreferenceService(prefTestLogger(), repo)

	style, ok := service.GetStyle()
	assert.True(t, ok)
	assert.Equal(t, domain.StyleBars, style)
	assert.Equal(t, "USB Headset", service.GetDevice())
	assert.Equal(t, []string{"a.wav"}, service.GetRecentFiles())
}

func TestPreferenceService_StaleStyleIsIgnored(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.style = "kaleidoscope"

	service := NewPreferenceService(prefTestLogger(), repo)

	style, ok := service.GetStyle()
	assert.False(t, ok)
	assert.Equal(t, domain.DefaultStyle, style)
}

func TestPreferenceService_SetStyle(t *testing.T) {
	service, repo := newTestPreferenceService()

	require.NoError(t, service.SetStyle(domain.StyleParticle))

	style, ok := service.GetStyle()
	assert.True(t, ok)
	assert.Equal(t, domain.StyleParticle, style)

	saved, err := repo.LoadStyle()
	require.NoError(t, err)
	assert.Equal(t, domain.StyleParticle, saved)

	// Saving the same style again does not touch the repository
	require.NoError(t, service.SetStyle(domain.StyleParticle))
	assert.Equal(t, 1, repo.saves)
}

func TestPreferenceService_SetStyle_Invalid(t *testing.T) {
	service, repo := newTestPreferenceService()

	err := service.SetStyle(domain.Style(42))
	assert.ErrorIs(t, err, domain.ErrUnsupportedStyle)
	assert.Zero(t, repo.saves)

	_, ok := service.GetStyle()
	assert.False(t, ok)
}

func TestPreferenceService_SetStyle_RepositoryFailure(t *testing.T) {
	service, repo := newTestPreferenceService()
	repo.failErr = errors.New("disk full")

	err := service.SetStyle(domain.StyleBars)
	assert.ErrorContains(t, err, "disk full")

	// The cache is unchanged when the write fails
	_, ok := service.GetStyle()
	assert.False(t, ok)
}

func TestPreferenceService_SetDevice(t *testing.T) {
	service, repo := newTestPreferenceService()

	require.NoError(t, service.SetDevice("Built-in Microphone"))
	assert.Equal(t, "Built-in Microphone", service.GetDevice())

	device, _ := repo.LoadDevice()
	assert.Equal(t, "Built-in Microphone", device)
}

func TestPreferenceService_AddRecentFile(t *testing.T) {
	service, repo := newTestPreferenceService()

	require.NoError(t, service.AddRecentFile("a.wav"))
	require.NoError(t, service.AddRecentFile("b.wav"))
	require.NoError(t, service.AddRecentFile("a.wav"))
	require.NoError(t, service.AddRecentFile(""))

	assert.Equal(t, []string{"a.wav", "b.wav"}, service.GetRecentFiles())

	saved, _ := repo.LoadRecentFiles()
	assert.Equal(t, []string{"a.wav", "b.wav"}, saved)
}

func TestPreferenceService_AddRecentFile_Bounded(t *testing.T) {
	service, _ := newTestPreferenceService()

	for i := 0; i < MaxRecentFiles+5; i++ {
		require.NoError(t, service.AddRecentFile(fmt.Sprintf("take-%02d.wav", i)))
	}

	recent := service.GetRecentFiles()
	assert.Len(t, recent, MaxRecentFiles)
	assert.Equal(t, fmt.Sprintf("take-%02d.wav", MaxRecentFiles+4), recent[0])
}

func TestPreferenceService_GetRecentFiles_ReturnsCopy(t *testing.T) {
	service, _ := newTestPreferenceService()
	require.NoError(t, service.AddRecentFile("a.wav"))

	recent := service.GetRecentFiles()
	recent[0] = "mutated.wav"

	assert.Equal(t, []string{"a.wav"}, service.GetRecentFiles())
}

func TestPreferenceService_ResetToDefaults(t *testing.T) {
	service, repo := newTestPreferenceService()
	require.NoError(t, service.SetStyle(domain.StyleCircular))
	require.NoError(t, service.SetDevice("mic"))
	require.NoError(t, service.AddRecentFile("a.wav"))

	require.NoError(t, service.ResetToDefaults())

	style, ok := service.GetStyle()
	assert.False(t, ok)
	assert.Equal(t, domain.DefaultStyle, style)
	assert.Empty(t, service.GetDevice())
	assert.Empty(t, service.GetRecentFiles())

	_, err := repo.LoadStyle()
	assert.ErrorIs(t, err, domain.ErrNoPreference)
}

func TestPreferenceService_GetAllPreferences(t *testing.T) {
	service, _ := newTestPreferenceService()
	require.NoError(t, service.SetStyle(domain.StyleBars))
	require.NoError(t, service.SetDevice("mic"))

	prefs := service.GetAllPreferences()
	assert.Equal(t, "bars", prefs["style"])
	assert.Equal(t, "mic", prefs["device"])
	assert.Empty(t, prefs["recent_files"])
}

func TestPreferenceService_ConcurrentAccess(t *testing.T) {
	service, _ := newTestPreferenceService()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = service.SetStyle(domain.Styles[i%len(domain.Styles)])
			_, _ = service.GetStyle()
			_ = service.AddRecentFile(fmt.Sprintf("%d.wav", i))
			_ = service.GetRecentFiles()
		}(i)
	}
	wg.Wait()

	style, ok := service.GetStyle()
	assert.True(t, ok)
	assert.True(t, style.Valid())
	assert.Len(t, service.GetRecentFiles(), MaxRecentFiles)
}
