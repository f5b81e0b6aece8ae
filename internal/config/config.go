// Package config defines the VoiceViz configuration file and its defaults.
package config

import (
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Capture sources.
const (
	SourceMicrophone = "microphone"
	SourceFile       = "file"
	SourceSynthetic  = "synthetic"
)

// Quality presets. Auto probes the device once.
const (
	QualityAuto = "auto"
	QualityHigh = "high"
	QualityLow  = "low"
)

// Config is the root of the configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Visual  VisualConfig  `yaml:"visual"`
	Capture CaptureConfig `yaml:"capture"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// VisualConfig configures the controller and the surface.
type VisualConfig struct {
	Style              string        `yaml:"style"`
	Strict             bool          `yaml:"strict"`
	TransitionDuration time.Duration `yaml:"transition_duration"`
	FrameRate          int           `yaml:"frame_rate"`
	Seed               uint64        `yaml:"seed"`
	Width              float64       `yaml:"width"`
	Height             float64       `yaml:"height"`
	PixelRatio         float64       `yaml:"pixel_ratio"`
	Quality            string        `yaml:"quality"`
}

// CaptureConfig selects and configures the audio source.
type CaptureConfig struct {
	Source           string `yaml:"source"`
	Device           string `yaml:"device"`
	File             string `yaml:"file"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	EchoCancellation bool   `yaml:"echo_cancellation"`
	NoiseSuppression bool   `yaml:"noise_suppression"`
	AutoGainControl  bool   `yaml:"auto_gain_control"`
}

// MetricsConfig configures the Prometheus endpoint of headless runs.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Visual: VisualConfig{
			Style:              domain.DefaultStyle.String(),
			TransitionDuration: domain.DefaultTransitionDuration,
			FrameRate:          60,
			Width:              480,
			Height:             240,
			PixelRatio:         1,
			Quality:            QualityAuto,
		},
		Capture: CaptureConfig{
			Source:           SourceMicrophone,
			SampleRate:       48000,
			Channels:         1,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9464"},
	}
}

// PortsCapture converts the capture section to the port configuration.
func (c CaptureConfig) PortsCapture() ports.CaptureConfig {
	return ports.CaptureConfig{
		SampleRate:       c.SampleRate,
		Channels:         c.Channels,
		Device:           c.Device,
		EchoCancellation: c.EchoCancellation,
		NoiseSuppression: c.NoiseSuppression,
		AutoGainControl:  c.AutoGainControl,
	}
}
