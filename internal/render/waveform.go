package render

import (
	"math"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Waveform draws horizontal lines: ambient sines when idle, the live time-domain
// signal while listening, layered synthetic voices while speaking and a
// travelling pulse while processing.
type Waveform struct{}

// NewWaveform creates a waveform renderer.
func NewWaveform() *Waveform { return &Waveform{} }

// Style implements Renderer.
func (*Waveform) Style() domain.Style { return domain.StyleWaveform }

// Reset implements Renderer.
func (*Waveform) Reset() {}

// Render implements Renderer.
func (wf *Waveform) Render(c ports.Canvas, frame domain.AudioFrame, opts Options) error {
	w, h, ok := prepare(c)
	if !ok {
		return nil
	}

	return Blend(c, opts, func(layer Layer) error {
		switch layer.State {
		case domain.StateListening:
			wf.listening(c, w, h, frame, opts)
		case domain.StateSpeaking:
			wf.speaking(c, w, h, opts)
		case domain.StateProcessing:
			wf.processing(c, w, h, opts)
		default:
			wf.idle(c, w, h, opts)
		}
		return nil
	})
}

func segments(w float64) int {
	return min(256, max(16, int(w/4)))
}

// sineLine samples y = mid + amp*sin(x*k + phase) across the width.
func sineLine(w, mid, amp, k, phase float64) []ports.Point {
	n := segments(w)
	pts := make([]ports.Point, n+1)
	for i := range pts {
		x := w * float64(i) / float64(n)
		pts[i] = ports.Point{X: x, Y: mid + amp*math.Sin(x*k+phase)}
	}
	return pts
}

func (*Waveform) idle(c ports.Canvas, w, h float64, opts Options) {
	t := opts.seconds()
	amp := h * 0.04 * opts.idleScale()
	k := 2 * math.Pi / w * 1.5

	c.StrokePath(sineLine(w, h/2, amp, k, t*1.2), 2, Fade(ColorIdle, 0.6))
	c.StrokePath(sineLine(w, h/2, amp*0.6, k*1.7, -t*0.8+1), 1.5, Fade(ColorIdle, 0.3))
}

func (*Waveform) listening(c ports.Canvas, w, h float64, frame domain.AudioFrame, opts Options) {
	samples := frame.TimeDomainSamples
	if len(samples) < 2 {
		c.StrokePath([]ports.Point{{X: 0, Y: h / 2}, {X: w, Y: h / 2}}, 2, Fade(ColorListening, 0.5))
		return
	}

	// Spatial smoothing; heavier on low-quality devices.
	k := clamp01(opts.Quality.AnimationSmoothing)
	gain := h * 0.4 * (0.8 + 0.6*frame.Level)

	pts := make([]ports.Point, len(samples))
	var s float64
	for i, b := range samples {
		v := (float64(b) - 128) / 128
		if i == 0 {
			s = v
		} else {
			s = k*s + (1-k)*v
		}
		pts[i] = ports.Point{
			X: w * float64(i) / float64(len(samples)-1),
			Y: h/2 + s*gain,
		}
	}

	glow := Fade(Lighten(ColorListening, 0.3), 0.25*opts.intensity())
	c.StrokePath(pts, 6, glow)
	c.StrokePath(pts, 2.5, ColorListening)
}

// speakingVoices are the layered synthetic lines shown while the assistant talks.
var speakingVoices = []struct {
	amp, k, speed, alpha, width float64
}{
	{0.18, 2.0, 2.4, 0.9, 2.5},
	{0.12, 3.1, -1.7, 0.6, 2},
	{0.08, 4.7, 3.3, 0.35, 1.5},
}

func (*Waveform) speaking(c ports.Canvas, w, h float64, opts Options) {
	t := opts.seconds()
	// Syllable-like envelope so the motion reads as speech.
	envelope := 0.55 + 0.45*math.Abs(math.Sin(t*3.1))*(0.7+0.3*math.Sin(t*1.3))

	for i, v := range speakingVoices {
		amp := h * v.amp * envelope * opts.intensity()
		k := 2 * math.Pi / w * v.k
		col := ShiftHue(ColorSpeaking, float64(i)*0.03)
		c.StrokePath(sineLine(w, h/2, amp, k, t*v.speed+float64(i)), v.width, Fade(col, v.alpha))
	}
}

func (*Waveform) processing(c ports.Canvas, w, h float64, opts Options) {
	t := opts.seconds()
	center := frac(t*0.45) * w
	sigma := w * 0.08

	n := segments(w)
	pts := make([]ports.Point, n+1)
	for i := range pts {
		x := w * float64(i) / float64(n)
		bump := gauss(x-center, sigma)
		pts[i] = ports.Point{X: x, Y: h/2 - h*0.2*bump*math.Sin(x*0.08-t*9)}
	}

	c.StrokePath([]ports.Point{{X: 0, Y: h / 2}, {X: w, Y: h / 2}}, 1, Fade(ColorProcessing, 0.25))
	c.StrokePath(pts, 2.5, ColorProcessing)
	c.FillCircle(center, h/2, 3+2*math.Sin(t*6), Fade(Lighten(ColorProcessing, 0.4), 0.8*opts.intensity()))
}
