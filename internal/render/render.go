// Package render draws the four visualization styles.
//
// Every renderer draws all four visual states and cross-fades between them with
// Blend. Only the particle renderer keeps state between frames; the others
// recompute the whole picture from the frame and options on each call.
package render

import (
	"fmt"
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// inactiveIdleScale dims idle motion when the session is not active.
const inactiveIdleScale = 0.5

// Options carry everything a renderer needs besides the audio frame.
type Options struct {
	Current  domain.VisualState
	Target   domain.VisualState
	Progress float64

	// Elapsed drives all motion so animation speed does not depend on frame rate.
	Elapsed time.Duration
	// Delta is the time since the previous frame.
	Delta time.Duration

	Quality domain.QualitySettings
	Active  bool
}

// Renderer draws one visualization style.
type Renderer interface {
	// Style returns the style this renderer draws.
	Style() domain.Style

	// Render clears the canvas and draws one frame. An empty frame draws the
	// states without audio input.
	Render(c ports.Canvas, frame domain.AudioFrame, opts Options) error

	// Reset drops any state carried between frames.
	Reset()
}

// Deps are the construction inputs shared by all renderers.
type Deps struct {
	// Seed makes particle spawning reproducible.
	Seed uint64
}

// New returns the renderer for style.
func New(style domain.Style, deps Deps) (Renderer, error) {
	switch style {
	case domain.StyleWaveform:
		return NewWaveform(), nil
	case domain.StyleCircular:
		return NewCircular(), nil
	case domain.StyleParticle:
		return NewParticles(deps.Seed), nil
	case domain.StyleBars:
		return NewBars(), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedStyle, style)
	}
}

// seconds returns the elapsed time in seconds.
func (o Options) seconds() float64 {
	return o.Elapsed.Seconds()
}

// idleScale is the amplitude multiplier for idle motion.
func (o Options) idleScale() float64 {
	if o.Active {
		return 1
	}
	return inactiveIdleScale
}

// intensity returns the quality effect intensity, defaulting to full.
func (o Options) intensity() float64 {
	if o.Quality.EffectIntensity <= 0 {
		return 1
	}
	return o.Quality.EffectIntensity
}

// prepare clears the canvas and returns its layout size.
// ok is false when there is no area to draw on.
func prepare(c ports.Canvas) (w, h float64, ok bool) {
	c.Clear()
	w, h = c.Size()
	return w, h, w > 0 && h > 0
}
