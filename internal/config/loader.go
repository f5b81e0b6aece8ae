package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/logger"
)

var (
	validSources   = []string{SourceMicrophone, SourceFile, SourceSynthetic}
	validQualities = []string{QualityAuto, QualityHigh, QualityLow}
	validFormats   = []string{"text", "json"}
)

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !slices.Contains(validFormats, cfg.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	v := cfg.Visual
	if _, err := domain.ParseStyle(v.Style); err != nil && v.Strict {
		errs = append(errs, fmt.Errorf("visual.style: %w", err))
	}
	if v.TransitionDuration < 0 {
		errs = append(errs, fmt.Errorf("visual.transition_duration %s must not be negative", v.TransitionDuration))
	}
	if v.FrameRate < 1 || v.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("visual.frame_rate %d is out of range [1, 240]", v.FrameRate))
	}
	if v.Width < 0 || v.Height < 0 {
		errs = append(errs, fmt.Errorf("visual size %gx%g must not be negative", v.Width, v.Height))
	}
	if v.PixelRatio <= 0 {
		errs = append(errs, fmt.Errorf("visual.pixel_ratio %g must be positive", v.PixelRatio))
	}
	if !slices.Contains(validQualities, v.Quality) {
		errs = append(errs, fmt.Errorf("visual.quality %q is invalid; valid values: auto, high, low", v.Quality))
	}

	c := cfg.Capture
	if !slices.Contains(validSources, c.Source) {
		errs = append(errs, fmt.Errorf("capture.source %q is invalid; valid values: microphone, file, synthetic", c.Source))
	}
	if c.Source == SourceFile && c.File == "" {
		errs = append(errs, errors.New("capture.file is required when capture.source is file"))
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d is out of range [8000, 192000]", c.SampleRate))
	}
	if c.Channels < 1 || c.Channels > 8 {
		errs = append(errs, fmt.Errorf("capture.channels %d is out of range [1, 8]", c.Channels))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
