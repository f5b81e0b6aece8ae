package render

import "math"

// EaseInOutCubic maps linear progress t in [0,1] onto a cubic ease-in-out curve.
// Values outside [0,1] are clamped.
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// frac returns the fractional part of a non-negative x.
func frac(x float64) float64 {
	return x - math.Floor(x)
}

// gauss is an unnormalized bell curve centered on 0 with width sigma.
func gauss(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}
