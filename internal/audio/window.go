package audio

import "math"

// Blackman window coefficients as used by the Web Audio AnalyserNode.
const (
	blackmanA0 = 0.42
	blackmanA1 = 0.5
	blackmanA2 = 0.08
)

// BlackmanWindow returns the n coefficients of a Blackman window.
//
// The window is periodic (divides by n, not n-1), matching the AnalyserNode.
func BlackmanWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 0 {
		return w
	}
	coef := 2 * math.Pi / float64(n)
	for i := range w {
		x := coef * float64(i)
		w[i] = blackmanA0 - blackmanA1*math.Cos(x) + blackmanA2*math.Cos(2*x)
	}
	return w
}
