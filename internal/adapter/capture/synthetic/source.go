// Package synthetic provides a capture device that generates a test tone.
// It is used by tests and by headless runs on machines without a microphone.
package synthetic

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Name is the backend name reported in logs and errors.
const Name = "synthetic"

const (
	defaultSampleRate = 48000
	defaultFrequency  = 220.0
	defaultAmplitude  = 0.5
)

// Source is a CaptureDevice producing a sine tone with a slow amplitude wobble.
//
// With a zero interval no goroutine is started and samples are only produced
// by Emit, which keeps tests deterministic.
//
// Thread-safety: This implementation is thread-safe.
type Source struct {
	logger *slog.Logger

	frequency float64
	amplitude float64
	interval  time.Duration

	mu         sync.Mutex
	open       bool
	sampleRate int
	handler    ports.SampleHandler
	phase      float64
	produced   int
	block      []float32

	// Behavior configuration (for testing error scenarios)
	failOpen error

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithTone sets the tone frequency in Hz and its peak amplitude.
func WithTone(frequency, amplitude float64) Option {
	return func(s *Source) {
		s.frequency = frequency
		s.amplitude = amplitude
	}
}

// WithInterval starts a producer goroutine that emits one block per interval.
func WithInterval(d time.Duration) Option {
	return func(s *Source) { s.interval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// New creates a synthetic source.
func New(opts ...Option) *Source {
	s := &Source{
		logger:    slog.New(slog.DiscardHandler),
		frequency: defaultFrequency,
		amplitude: defaultAmplitude,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.CaptureDevice.
func (s *Source) Name() string { return Name }

// SetFailOpen makes the next Open calls fail with err wrapped in a CaptureError.
// Pass nil to restore normal behavior.
func (s *Source) SetFailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOpen = err
}

// Open implements ports.CaptureDevice.
func (s *Source) Open(ctx context.Context, cfg ports.CaptureConfig, handler ports.SampleHandler) error {
	if handler == nil {
		return domain.NewCaptureError("open", Name, "nil sample handler", nil)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewCaptureError("open", Name, "context done", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOpen != nil {
		return domain.NewCaptureError("open", Name, "simulated failure", s.failOpen)
	}
	if s.open {
		return nil
	}

	s.sampleRate = cfg.SampleRate
	if s.sampleRate <= 0 {
		s.sampleRate = defaultSampleRate
	}
	s.handler = handler
	s.phase = 0
	s.produced = 0
	s.open = true

	s.logger.Debug("synthetic source opened",
		slog.Int("sample_rate", s.sampleRate),
		slog.Float64("frequency", s.frequency))

	if s.interval > 0 {
		runCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		blockLen := max(1, int(float64(s.sampleRate)*s.interval.Seconds()))
		go s.run(runCtx, blockLen)
	}
	return nil
}

func (s *Source) run(ctx context.Context, blockLen int) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Emit(blockLen)
		}
	}
}

// Emit synthesizes n samples and delivers them to the handler.
// It does nothing while the source is closed.
func (s *Source) Emit(n int) {
	s.mu.Lock()
	if !s.open || n <= 0 {
		s.mu.Unlock()
		return
	}

	if cap(s.block) < n {
		s.block = make([]float32, n)
	}
	block := s.block[:n]

	step := 2 * math.Pi * s.frequency / float64(s.sampleRate)
	for i := range block {
		t := float64(s.produced+i) / float64(s.sampleRate)
		wobble := 0.6 + 0.4*math.Sin(2*math.Pi*1.5*t)
		block[i] = float32(s.amplitude * wobble * math.Sin(s.phase))
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}
	s.produced += n
	handler := s.handler
	s.mu.Unlock()

	// The handler takes its own locks; call it outside ours.
	handler(block)
}

// pumpInterval is the block length of Pump when no interval is configured.
const pumpInterval = 10 * time.Millisecond

// Pump emits one interval's worth of samples. It does nothing while the source is closed.
func (s *Source) Pump() error {
	s.mu.Lock()
	rate, interval := s.sampleRate, s.interval
	s.mu.Unlock()

	if interval <= 0 {
		interval = pumpInterval
	}
	s.Emit(max(1, int(float64(rate)*interval.Seconds())))
	return nil
}

// Produced returns the number of samples emitted since Open.
func (s *Source) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

// IsOpen reports whether the source is delivering samples.
func (s *Source) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Close implements ports.CaptureDevice.
func (s *Source) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	s.handler = nil
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.logger.Debug("synthetic source closed")
	return nil
}

// Devices implements ports.DeviceLister.
func (s *Source) Devices(context.Context) ([]ports.DeviceInfo, error) {
	return []ports.DeviceInfo{{ID: Name, Name: "Synthetic tone", Default: true}}, nil
}

// ErrPermissionDenied simulates a user refusing microphone access.
var ErrPermissionDenied = errors.New("permission denied")

var (
	_ ports.CaptureDevice = (*Source)(nil)
	_ ports.DeviceLister  = (*Source)(nil)
)
