// Package sampler bridges a capture device to the per-frame analysis arrays.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/wealthwise/voiceviz/internal/audio"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// DefaultCaptureConfig requests the browser-style voice constraints.
func DefaultCaptureConfig() ports.CaptureConfig {
	return ports.CaptureConfig{
		SampleRate:       48000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Options configures a Sampler.
type Options struct {
	Capture ports.CaptureConfig
	Logger  *slog.Logger
	Bus     ports.EventBus // Optional
}

// Sampler implements ports.AudioSampler on top of a ports.CaptureDevice.
//
// The capture backend writes into a ring of the latest audio.FFTSize samples;
// sampling calls copy the ring out and run the analyser under the same mutex,
// so a call never waits longer than one analysis.
//
// Thread-safety: This implementation is thread-safe.
type Sampler struct {
	device ports.CaptureDevice
	cfg    ports.CaptureConfig
	logger *slog.Logger
	bus    ports.EventBus

	// lifecycle serializes Initialize and Dispose; it is never taken by the capture thread
	lifecycle sync.Mutex
	disposed  bool

	// mu guards everything below
	mu          sync.Mutex
	initialized bool
	ring        []float32
	pos         int
	window      []float32
	block       []float32
	analyser    *audio.Analyser
	conditioner *audio.Conditioner
	freq        []uint8
	timeDomain  []uint8
}

// New creates a sampler for device. Nothing is opened until Initialize.
func New(device ports.CaptureDevice, opts Options) *Sampler {
	cfg := opts.Capture
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultCaptureConfig().SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Sampler{
		device: device,
		cfg:    cfg,
		logger: log.With(slog.String("component", "sampler"), slog.String("source", device.Name())),
		bus:    opts.Bus,
	}
}

// Initialize opens the capture device and allocates the analysis buffers.
//
// Capture failures are returned wrapped around domain.ErrCaptureUnavailable and
// leave the sampler uninitialized so the caller can keep rendering idle motion.
func (s *Sampler) Initialize(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.disposed {
		return fmt.Errorf("initialize sampler: %w", domain.ErrDisposed)
	}
	if s.Initialized() {
		return nil
	}

	s.mu.Lock()
	s.ring = make([]float32, audio.FFTSize)
	s.window = make([]float32, audio.FFTSize)
	s.pos = 0
	s.analyser = audio.NewAnalyser(audio.FFTSize)
	s.conditioner = audio.NewConditioner(audio.ConditionerConfig{
		SampleRate: s.cfg.SampleRate,
		AutoGain:   s.cfg.AutoGainControl,
		NoiseGate:  s.cfg.NoiseSuppression,
	})
	s.freq = make([]uint8, audio.FrequencyBinCount)
	s.timeDomain = make([]uint8, audio.FrequencyBinCount)
	s.mu.Unlock()

	if err := s.device.Open(ctx, s.cfg, s.onSamples); err != nil {
		s.release()
		s.logger.Warn("capture unavailable, rendering without audio", slog.Any("error", err))
		s.publish(domain.NewSamplerFailedEvent(s.device.Name(), err))
		return fmt.Errorf("initialize sampler: %w: %w", domain.ErrCaptureUnavailable, err)
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("capture started",
		slog.Int("sample_rate", s.cfg.SampleRate),
		slog.Bool("auto_gain", s.cfg.AutoGainControl),
		slog.Bool("noise_suppression", s.cfg.NoiseSuppression))
	if s.cfg.EchoCancellation {
		s.logger.Debug("echo cancellation requested but not provided by native capture")
	}
	s.publish(domain.NewSamplerReadyEvent(s.device.Name(), s.cfg.SampleRate))
	return nil
}

// onSamples is the capture callback. It runs on the backend's thread.
func (s *Sampler) onSamples(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ring == nil {
		return
	}

	if s.conditioner.Enabled() {
		if cap(s.block) < len(samples) {
			s.block = make([]float32, len(samples))
		}
		block := s.block[:len(samples)]
		copy(block, samples)
		s.conditioner.Process(block)
		samples = block
	}

	// Only the newest len(ring) samples can survive.
	if len(samples) > len(s.ring) {
		samples = samples[len(samples)-len(s.ring):]
	}
	n := copy(s.ring[s.pos:], samples)
	if n < len(samples) {
		copy(s.ring, samples[n:])
	}
	s.pos = (s.pos + len(samples)) % len(s.ring)
}

// Initialized reports whether the capture device is open.
func (s *Sampler) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// SampleFrequency returns a fresh frequency-domain array, or nil when not initialized.
func (s *Sampler) SampleFrequency() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	s.analyseFrequency()
	return slices.Clone(s.freq)
}

// SampleTimeDomain returns a fresh time-domain array, or nil when not initialized.
func (s *Sampler) SampleTimeDomain() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	s.analyseTimeDomain()
	return slices.Clone(s.timeDomain)
}

// Level returns the RMS of the most recent frequency sample.
func (s *Sampler) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return 0
	}
	return audio.Level(s.freq)
}

// Bands returns the band averages of the most recent frequency sample.
func (s *Sampler) Bands() domain.Bands {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.Bands{}
	}
	return audio.ComputeBands(s.freq)
}

// Frame samples both domains and derives level and bands in one critical section.
func (s *Sampler) Frame() (domain.AudioFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.AudioFrame{}, false
	}
	s.analyseFrequency()
	s.analyseTimeDomain()

	return domain.AudioFrame{
		FrequencyBins:     slices.Clone(s.freq),
		TimeDomainSamples: slices.Clone(s.timeDomain),
		Level:             audio.Level(s.freq),
		Bands:             audio.ComputeBands(s.freq),
	}, true
}

// unroll copies the ring into window, oldest sample first. Caller holds mu.
func (s *Sampler) unroll() []float32 {
	n := copy(s.window, s.ring[s.pos:])
	copy(s.window[n:], s.ring[:s.pos])
	return s.window
}

func (s *Sampler) analyseFrequency() {
	s.analyser.ByteFrequencyData(s.unroll(), s.freq)
}

func (s *Sampler) analyseTimeDomain() {
	audio.ByteTimeDomainData(s.unroll(), s.timeDomain)
}

// Dispose stops the capture device and releases the buffers.
// It is safe to call multiple times; later sampling calls return empty values.
func (s *Sampler) Dispose() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.disposed {
		return nil
	}
	s.disposed = true

	wasOpen := s.Initialized()
	s.release()

	if !wasOpen {
		return nil
	}

	err := s.device.Close()
	if err != nil {
		s.logger.Warn("capture close failed", slog.Any("error", err))
		err = fmt.Errorf("dispose sampler: %w", err)
	}
	s.logger.Info("capture stopped")
	s.publish(domain.NewSamplerDisposedEvent(s.device.Name()))
	return err
}

// release drops the analysis state.
func (s *Sampler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.ring = nil
	s.window = nil
	s.block = nil
	s.analyser = nil
	s.conditioner = nil
	s.freq = nil
	s.timeDomain = nil
}

func (s *Sampler) publish(event domain.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

var _ ports.AudioSampler = (*Sampler)(nil)
