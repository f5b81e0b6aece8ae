package audio

import (
	"math"

	"github.com/wealthwise/voiceviz/internal/domain"
)

// Range is a half-open range of bin indices.
type Range struct {
	Start, End int
}

// Len returns the number of bins in the range.
func (r Range) Len() int { return r.End - r.Start }

// BandRanges splits n bins into bass [0,10%), mid [10%,40%) and treble [40%,100%).
//
// For n >= 3 every range is non-empty and the three lengths sum to n.
// Smaller n yields empty trailing ranges.
func BandRanges(n int) [3]Range {
	if n <= 0 {
		return [3]Range{}
	}
	bassEnd := min(max(1, n/10), n)
	midEnd := min(max(bassEnd+1, n*4/10), n)
	return [3]Range{
		{0, bassEnd},
		{bassEnd, midEnd},
		{midEnd, n},
	}
}

// Level returns the RMS of bins normalized by 255, in [0,1].
func Level(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bins {
		v := float64(b)
		sum += v * v
	}
	return math.Min(1, math.Sqrt(sum/float64(len(bins)))/255)
}

// ComputeBands returns the normalized mean of each band range.
func ComputeBands(bins []uint8) domain.Bands {
	r := BandRanges(len(bins))
	return domain.Bands{
		Bass:   mean(bins[r[0].Start:r[0].End]),
		Mid:    mean(bins[r[1].Start:r[1].End]),
		Treble: mean(bins[r[2].Start:r[2].End]),
	}
}

func mean(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins)) / 255
}
