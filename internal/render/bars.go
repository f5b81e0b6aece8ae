package render

import (
	"math"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

const (
	maxBars     = 32
	minBarPitch = 6.0
)

// Bars draws a row of vertically centered spectrum bars.
type Bars struct{}

// NewBars creates a bars renderer.
func NewBars() *Bars { return &Bars{} }

// Style implements Renderer.
func (*Bars) Style() domain.Style { return domain.StyleBars }

// Reset implements Renderer.
func (*Bars) Reset() {}

// barLayout is the horizontal geometry shared by all states.
type barLayout struct {
	count int
	pitch float64
	width float64
	h     float64
}

// rect returns the rectangle of bar i with the given height, centered vertically.
func (l barLayout) rect(i int, height float64) (x, y, w, h float64) {
	height = math.Max(2, math.Min(height, l.h))
	x = float64(i)*l.pitch + (l.pitch-l.width)/2
	return x, (l.h - height) / 2, l.width, height
}

// Render implements Renderer.
func (b *Bars) Render(c ports.Canvas, frame domain.AudioFrame, opts Options) error {
	w, h, ok := prepare(c)
	if !ok {
		return nil
	}
	count := min(maxBars, int(w/minBarPitch))
	if count < 1 {
		return nil
	}
	pitch := w / float64(count)
	layout := barLayout{count: count, pitch: pitch, width: pitch * 0.7, h: h}

	return Blend(c, opts, func(layer Layer) error {
		switch layer.State {
		case domain.StateListening:
			b.listening(c, layout, frame, opts)
		case domain.StateSpeaking:
			b.speaking(c, layout, opts)
		case domain.StateProcessing:
			b.processing(c, layout, opts)
		default:
			b.idle(c, layout, opts)
		}
		return nil
	})
}

func (*Bars) idle(c ports.Canvas, l barLayout, opts Options) {
	t := opts.seconds()
	for i := 0; i < l.count; i++ {
		height := l.h * (0.05 + 0.03*math.Sin(t*2+float64(i)*0.4)) * opts.idleScale()
		x, y, w, h := l.rect(i, height)
		c.FillRect(x, y, w, h, Fade(ColorIdle, 0.6))
	}
}

// groupBins averages bins into count groups.
func groupBins(bins []uint8, count int) []float64 {
	out := make([]float64, count)
	if len(bins) == 0 {
		return out
	}
	for i := range out {
		start := i * len(bins) / count
		end := max(start+1, (i+1)*len(bins)/count)
		end = min(end, len(bins))
		var sum int
		for _, v := range bins[start:end] {
			sum += int(v)
		}
		out[i] = float64(sum) / float64(end-start) / 255
	}
	return out
}

func (*Bars) listening(c ports.Canvas, l barLayout, frame domain.AudioFrame, opts Options) {
	values := groupBins(frame.FrequencyBins, l.count)
	for i, v := range values {
		height := v * l.h * 0.85 * opts.intensity()
		x, y, w, h := l.rect(i, height)
		c.FillRect(x, y, w, h, Mix(ColorListening, Lighten(ColorListening, 0.5), v))
	}
}

func (*Bars) speaking(c ports.Canvas, l barLayout, opts Options) {
	t := opts.seconds()
	envelope := 0.6 + 0.4*math.Sin(t*1.3)
	for i := 0; i < l.count; i++ {
		fi := float64(i)
		// Taper towards the edges like a voice spectrum.
		shape := 0.4 + 0.6*math.Sin(math.Pi*(fi+0.5)/float64(l.count))
		v := (0.15 + 0.5*math.Abs(math.Sin(t*3+fi*0.35))*envelope) * shape
		x, y, w, h := l.rect(i, v*l.h*opts.intensity())
		c.FillRect(x, y, w, h, Fade(ColorSpeaking, 0.5+0.5*v))
	}
}

func (*Bars) processing(c ports.Canvas, l barLayout, opts Options) {
	t := opts.seconds()
	highlight := frac(t*0.6) * float64(l.count)
	for i := 0; i < l.count; i++ {
		// Distance on a ring so the highlight wraps smoothly.
		d := math.Abs(float64(i) - highlight)
		d = math.Min(d, float64(l.count)-d)
		g := gauss(d, 2)
		x, y, w, h := l.rect(i, l.h*(0.08+0.3*g))
		c.FillRect(x, y, w, h, Fade(Mix(ColorProcessing, Lighten(ColorProcessing, 0.5), g), 0.35+0.65*g))
	}
}
