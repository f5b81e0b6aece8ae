package render

import (
	"math"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

const maxRadialBars = 64

// Circular draws around the canvas center: a breathing circle when idle,
// radial frequency bars while listening, expanding rings while speaking and
// rotating arcs while processing.
type Circular struct{}

// NewCircular creates a circular renderer.
func NewCircular() *Circular { return &Circular{} }

// Style implements Renderer.
func (*Circular) Style() domain.Style { return domain.StyleCircular }

// Reset implements Renderer.
func (*Circular) Reset() {}

// Render implements Renderer.
func (cr *Circular) Render(c ports.Canvas, frame domain.AudioFrame, opts Options) error {
	w, h, ok := prepare(c)
	if !ok {
		return nil
	}
	cx, cy := w/2, h/2
	radius := math.Min(w, h) * 0.25

	return Blend(c, opts, func(layer Layer) error {
		switch layer.State {
		case domain.StateListening:
			cr.listening(c, cx, cy, radius, frame, opts)
		case domain.StateSpeaking:
			cr.speaking(c, cx, cy, radius, opts)
		case domain.StateProcessing:
			cr.processing(c, cx, cy, radius, opts)
		default:
			cr.idle(c, cx, cy, radius, opts)
		}
		return nil
	})
}

func (*Circular) idle(c ports.Canvas, cx, cy, radius float64, opts Options) {
	t := opts.seconds()
	breath := 1 + 0.06*math.Sin(t*1.6)*opts.idleScale()
	r := radius * breath

	c.FillCircle(cx, cy, r, Fade(ColorIdle, 0.12))
	c.StrokeCircle(cx, cy, r, 2, Fade(ColorIdle, 0.7))
}

func (*Circular) listening(c ports.Canvas, cx, cy, radius float64, frame domain.AudioFrame, opts Options) {
	t := opts.seconds()
	bins := frame.FrequencyBins

	pulse := radius * 0.6 * (1 + 0.35*frame.Bands.Bass)
	c.FillCircle(cx, cy, pulse, Fade(ColorListening, 0.18+0.3*frame.Bands.Bass))
	c.StrokeCircle(cx, cy, radius, 1.5, Fade(ColorListening, 0.5))

	if len(bins) == 0 {
		return
	}

	count := min(maxRadialBars, len(bins))
	rotation := t * 0.2
	reach := radius * 0.9 * opts.intensity()
	for i := 0; i < count; i++ {
		v := float64(bins[i*len(bins)/count]) / 255
		if v <= 0 {
			continue
		}
		a := rotation + 2*math.Pi*float64(i)/float64(count)
		cos, sin := math.Cos(a), math.Sin(a)
		inner := radius + 2
		outer := inner + v*reach
		c.StrokePath([]ports.Point{
			{X: cx + cos*inner, Y: cy + sin*inner},
			{X: cx + cos*outer, Y: cy + sin*outer},
		}, 3, Mix(ColorListening, Lighten(ColorListening, 0.6), v))
	}
}

const speakingRings = 4

func (*Circular) speaking(c ports.Canvas, cx, cy, radius float64, opts Options) {
	t := opts.seconds()
	for k := 0; k < speakingRings; k++ {
		phase := frac(t*0.5 + float64(k)/speakingRings)
		r := radius * (0.5 + 1.2*phase)
		c.StrokeCircle(cx, cy, r, 3*(1-phase)+1, Fade(ColorSpeaking, (1-phase)*0.8*opts.intensity()))
	}
	c.FillCircle(cx, cy, radius*0.45*(1+0.08*math.Sin(t*5)), Fade(ColorSpeaking, 0.35))
}

func (*Circular) processing(c ports.Canvas, cx, cy, radius float64, opts Options) {
	t := opts.seconds()
	const arcs = 3
	sweep := math.Pi / 3 * (1 + 0.3*math.Sin(t*2))

	for k := 0; k < arcs; k++ {
		offset := 2 * math.Pi * float64(k) / arcs
		start := t*2.2 + offset
		c.StrokeArc(cx, cy, radius, start, start+sweep, 4, ColorProcessing)

		inner := -t*3.1 + offset
		c.StrokeArc(cx, cy, radius*0.72, inner, inner+sweep*0.7, 2.5, Fade(Lighten(ColorProcessing, 0.3), 0.7))
	}
}
