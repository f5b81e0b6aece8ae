// Package file replays a WAV file as if it were a live microphone.
//
// The decoded stream is resampled to the capture rate, downmixed to mono and
// looped, and delivered in small blocks paced to real time. It lets the
// visualization run against recorded speech on machines without an input device.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Name is the backend name reported in logs and errors.
const Name = "file"

// DefaultInterval is the block pacing of a replayed file.
const DefaultInterval = 10 * time.Millisecond

// resampleQuality is the beep resampler quality (1 is linear, 4 a good default).
const resampleQuality = 4

// Metadata describes the replayed file.
type Metadata struct {
	Path       string
	Title      string
	Artist     string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Source is a CaptureDevice that reads a WAV file.
//
// With a zero interval no goroutine is started and blocks are only produced by
// Pump, which keeps tests deterministic.
//
// Thread-safety: This implementation is thread-safe.
type Source struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	file     *os.File
	decoder  beep.StreamSeekCloser
	stream   beep.Streamer
	handler  ports.SampleHandler
	meta     Metadata
	frames   [][2]float64
	mono     []float32
	blockLen int
	produced int

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithInterval sets the block pacing. Zero disables the producer goroutine.
func WithInterval(d time.Duration) Option {
	return func(s *Source) { s.interval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// New creates a source for the WAV file at path. The file is opened by Open.
func New(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "capture"), slog.String("source", Name))
	return s
}

// Name implements ports.CaptureDevice.
func (s *Source) Name() string { return Name }

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

	if s.file != nil {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return domain.NewCaptureError("open", Name, "open file", err)
	}

	meta := readTags(f, s.path)
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return domain.NewCaptureError("open", Name, "rewind file", err)
	}

	decoder, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return domain.NewCaptureError("open", Name, "decode wav", err)
	}
	if decoder.Len() == 0 {
		decoder.Close()
		return domain.NewCaptureError("open", Name, "empty wav", nil)
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = int(format.SampleRate)
	}
	var stream beep.Streamer = &looper{s: decoder}
	if beep.SampleRate(rate) != format.SampleRate {
		stream = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(rate), stream)
	}

	meta.SampleRate = int(format.SampleRate)
	meta.Channels = format.NumChannels
	meta.Duration = format.SampleRate.D(decoder.Len())

	s.file = f
	s.decoder = decoder
	s.stream = stream
	s.handler = handler
	s.meta = meta
	s.produced = 0
	pace := s.interval
	if pace <= 0 {
		pace = DefaultInterval
	}
	s.blockLen = max(1, int(float64(rate)*pace.Seconds()))

	s.logger.Info("replaying file",
		slog.String("path", meta.Path),
		slog.String("title", meta.Title),
		slog.Int("sample_rate", meta.SampleRate),
		slog.Int("channels", meta.Channels),
		slog.Duration("duration", meta.Duration))

	if s.interval > 0 {
		runCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(runCtx)
	}
	return nil
}

// readTags returns the file's tag metadata. WAV files rarely carry tags, so a
// missing tag only falls back to the file name.
func readTags(f *os.File, path string) Metadata {
	meta := Metadata{Path: path, Title: filepath.Base(path)}
	m, err := tag.ReadFrom(f)
	if err != nil {
		return meta
	}
	if m.Title() != "" {
		meta.Title = m.Title()
	}
	meta.Artist = m.Artist()
	return meta
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Pump(); err != nil {
				s.logger.Error("replay stopped", slog.Any("error", err))
				return
			}
		}
	}
}

// Pump decodes one block and delivers it to the handler.
// It does nothing while the source is closed.
func (s *Source) Pump() error {
	s.mu.Lock()
	if s.stream == nil {
		s.mu.Unlock()
		return nil
	}
	if cap(s.frames) < s.blockLen {
		s.frames = make([][2]float64, s.blockLen)
		s.mono = make([]float32, s.blockLen)
	}
	frames := s.frames[:s.blockLen]
	n, ok := s.stream.Stream(frames)
	if !ok {
		err := s.stream.Err()
		s.mu.Unlock()
		if err == nil {
			err = errors.New("stream ended")
		}
		return fmt.Errorf("pump %s: %w", s.meta.Path, err)
	}

	mono := s.mono[:n]
	for i := range mono {
		mono[i] = float32((frames[i][0] + frames[i][1]) / 2)
	}
	s.produced += n
	handler := s.handler
	s.mu.Unlock()

	handler(mono)
	return nil
}

// Metadata returns what is known about the open file.
func (s *Source) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Produced returns the number of samples delivered since Open.
func (s *Source) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

// Close implements ports.CaptureDevice. It waits for the producer goroutine.
func (s *Source) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decoder == nil {
		return nil
	}
	// Closing the decoder closes the file.
	err := s.decoder.Close()
	s.decoder = nil
	s.stream = nil
	s.file = nil
	s.handler = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// looper restarts a seekable stream at its end.
type looper struct {
	s beep.StreamSeeker
}

func (l *looper) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.s.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}
		if l.s.Err() != nil || l.s.Len() == 0 {
			return filled, filled > 0
		}
		if err := l.s.Seek(0); err != nil {
			return filled, filled > 0
		}
	}
	return filled, true
}

func (l *looper) Err() error { return l.s.Err() }

var _ ports.CaptureDevice = (*Source)(nil)
