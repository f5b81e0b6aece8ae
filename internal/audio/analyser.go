// Package audio turns raw PCM into the byte arrays the renderers consume.
//
// The analysis mirrors a browser AnalyserNode: a Blackman-windowed real FFT,
// magnitudes scaled by 1/N, exponential smoothing across calls, and a decibel
// range mapped onto 0..255.
package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analysis constants.
const (
	// FFTSize is the transform size. It drives the bin count.
	FFTSize = 512

	// FrequencyBinCount is the length of every frequency and time-domain array.
	FrequencyBinCount = FFTSize / 2

	SmoothingTimeConstant = 0.8
	MinDecibels           = -100.0
	MaxDecibels           = -30.0
)

// Analyser converts a window of samples to frequency and time-domain bytes.
//
// An Analyser keeps the smoothed spectrum between calls and is not safe for
// concurrent use; the sampler serializes access.
type Analyser struct {
	size     int
	fft      *fourier.FFT
	window   []float64
	input    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser for windows of size samples.
// size must be a positive even number; FFTSize is the usual choice.
func NewAnalyser(size int) *Analyser {
	if size <= 0 || size%2 != 0 {
		size = FFTSize
	}
	return &Analyser{
		size:     size,
		fft:      fourier.NewFFT(size),
		window:   BlackmanWindow(size),
		input:    make([]float64, size),
		coeffs:   make([]complex128, size/2+1),
		smoothed: make([]float64, size/2),
	}
}

// Size returns the transform size.
func (a *Analyser) Size() int { return a.size }

// BinCount returns the number of frequency bins.
func (a *Analyser) BinCount() int { return a.size / 2 }

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	clear(a.smoothed)
}

// ByteFrequencyData analyses the most recent Size() samples and writes up to
// BinCount() bytes into dst. Shorter input is zero-padded at the front.
func (a *Analyser) ByteFrequencyData(samples []float32, dst []uint8) {
	a.load(samples)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.input)

	scale := 1 / float64(a.size)
	rangeScale := 255 / (MaxDecibels - MinDecibels)

	n := min(len(dst), len(a.smoothed))
	for k := range a.smoothed {
		c := a.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) * scale

		s := SmoothingTimeConstant*a.smoothed[k] + (1-SmoothingTimeConstant)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s

		if k >= n {
			continue
		}
		if s <= 0 {
			dst[k] = 0
			continue
		}
		db := 20 * math.Log10(s)
		dst[k] = clampByte(math.Floor(rangeScale * (db - MinDecibels)))
	}
}

// ByteTimeDomainData writes the most recent len(dst) samples as bytes centered at 128.
func ByteTimeDomainData(samples []float32, dst []uint8) {
	offset := len(samples) - len(dst)
	for i := range dst {
		j := offset + i
		if j < 0 {
			dst[i] = 128
			continue
		}
		dst[i] = clampByte(math.Floor(128 * (1 + float64(samples[j]))))
	}
}

// load copies the newest samples into the windowed input buffer.
func (a *Analyser) load(samples []float32) {
	offset := len(samples) - a.size
	for i := range a.input {
		j := offset + i
		if j < 0 {
			a.input[i] = 0
			continue
		}
		a.input[i] = float64(samples[j]) * a.window[i]
	}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
