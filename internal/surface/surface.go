// Package surface keeps a drawing backing store in sync with its displayed size.
package surface

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"
	"sync"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// MaxPixelRatio caps the device pixel ratio applied to the backing store.
const MaxPixelRatio = 2.0

// Size is the outcome of a resize.
type Size struct {
	Width, Height               float64 // Displayed size in layout units
	BackingWidth, BackingHeight int     // Backing store size in device pixels
	Scale                       float64 // Applied pixel ratio
}

// Options configures a Surface.
type Options struct {
	Probe  Probe
	Logger *slog.Logger
	Bus    ports.EventBus // Optional
}

// Surface owns a backing store and the transform that maps layout units onto it.
//
// Resize is driven by the UI thread while frames are drawn from the scheduler,
// so both go through the same mutex.
//
// Thread-safety: This implementation is thread-safe.
type Surface struct {
	logger *slog.Logger
	bus    ports.EventBus
	probe  Probe

	qualityOnce sync.Once
	quality     domain.QualitySettings

	mu         sync.Mutex
	backing    ports.Backing
	pixelRatio float64
	size       Size
	ready      bool
}

// New creates a surface over backing. It is not ready until the first successful Resize.
func New(backing ports.Backing, opts Options) *Surface {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ratio := opts.Probe.PixelRatio
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = 1
	}
	return &Surface{
		logger:     log.With(slog.String("component", "surface")),
		bus:        opts.Bus,
		probe:      opts.Probe,
		backing:    backing,
		pixelRatio: ratio,
	}
}

// SetPixelRatio updates the device pixel ratio used by the next Resize.
func (s *Surface) SetPixelRatio(ratio float64) {
	if ratio <= 0 || math.IsNaN(ratio) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixelRatio = ratio
}

// Resize matches the backing store to a displayed size.
//
// The backing size is round(display * min(pixelRatio, MaxPixelRatio)); the
// transform is reset and then scaled by the same factor, so repeated calls with
// the same size never accumulate scale. A zero or negative size marks the
// surface not ready and returns domain.ErrSurfaceEmpty.
func (s *Surface) Resize(width, height float64) (Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scale := math.Min(s.pixelRatio, MaxPixelRatio)
	bw := int(math.Round(width * scale))
	bh := int(math.Round(height * scale))

	if !(width > 0 && height > 0) || bw <= 0 || bh <= 0 {
		if s.ready {
			s.logger.Debug("surface hidden", slog.Float64("width", width), slog.Float64("height", height))
		}
		s.ready = false
		return s.size, fmt.Errorf("resize to %gx%g: %w", width, height, domain.ErrSurfaceEmpty)
	}

	changed := false
	if w, h := s.backing.BackingSize(); w != bw || h != bh {
		s.backing.SetBackingSize(bw, bh)
		changed = true
	}
	s.backing.ResetTransform()
	s.backing.Scale(scale, scale)

	next := Size{Width: width, Height: height, BackingWidth: bw, BackingHeight: bh, Scale: scale}
	changed = changed || next != s.size
	s.size = next
	s.ready = true

	if changed {
		s.logger.Debug("surface resized",
			slog.Int("backing_width", bw),
			slog.Int("backing_height", bh),
			slog.Float64("scale", scale))
		if s.bus != nil {
			s.bus.Publish(domain.NewSurfaceResizedEvent(width, height, scale))
		}
	}
	return next, nil
}

// Ready reports whether the last resize produced a drawable area.
func (s *Surface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Size returns the last successful resize.
func (s *Surface) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// QualityHint returns the settings derived from the probe. The probe is evaluated once.
func (s *Surface) QualityHint() domain.QualitySettings {
	s.qualityOnce.Do(func() {
		s.quality = QualityFor(s.probe)
		s.logger.Info("quality selected",
			slog.Int("particles", s.quality.ParticleCount),
			slog.Bool("mobile", s.probe.Mobile),
			slog.Int("cpus", s.probe.CPUs))
	})
	return s.quality
}

// Draw runs fn against the canvas while holding the surface.
// It returns domain.ErrSurfaceEmpty without calling fn when the surface is not ready.
func (s *Surface) Draw(fn func(ports.Canvas) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return domain.ErrSurfaceEmpty
	}
	return fn(s.backing)
}

// Snapshot copies the backing store. It returns nil when the surface is not ready.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil
	}
	src := s.backing.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
