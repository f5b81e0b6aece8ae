package render

import (
	"image/color"
	"math"

	"github.com/wealthwise/voiceviz/internal/domain"
)

// State colors of the WealthWise palette.
var (
	ColorIdle       = color.NRGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff} // slate
	ColorListening  = color.NRGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff} // emerald
	ColorSpeaking   = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff} // blue
	ColorProcessing = color.NRGBA{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff} // violet
)

// StateColor returns the base color of a visual state.
func StateColor(s domain.VisualState) color.NRGBA {
	switch s {
	case domain.StateListening:
		return ColorListening
	case domain.StateSpeaking:
		return ColorSpeaking
	case domain.StateProcessing:
		return ColorProcessing
	default:
		return ColorIdle
	}
}

// Fade multiplies the alpha of c by a in [0,1].
func Fade(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp01(a)))
	return c
}

// Mix linearly interpolates from a to b.
func Mix(a, b color.NRGBA, t float64) color.NRGBA {
	t = clamp01(t)
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}

// Lighten mixes c towards white.
func Lighten(c color.NRGBA, t float64) color.NRGBA {
	return Mix(c, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: c.A}, t)
}

// ShiftHue rotates the hue of c by turns (1 = full circle), keeping saturation and lightness.
func ShiftHue(c color.NRGBA, turns float64) color.NRGBA {
	h, s, l := rgbToHSL(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
	r, g, b := HSLToRGB(frac(h+turns), s, l)
	return color.NRGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: c.A}
}

// HSLToRGB converts HSL to RGB (h, s, l in 0-1 range).
func HSLToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return hueToRGB(p, q, h+1.0/3.0), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3.0)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

func rgbToHSL(r, g, b float64) (h, s, l float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l
	}

	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
