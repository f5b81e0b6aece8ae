package surface

import (
	"runtime"

	"github.com/wealthwise/voiceviz/internal/domain"
)

// Quality presets.
var (
	HighQuality = domain.QualitySettings{ParticleCount: 150, AnimationSmoothing: 0.15, EffectIntensity: 1.0}
	LowQuality  = domain.QualitySettings{ParticleCount: 60, AnimationSmoothing: 0.35, EffectIntensity: 0.7}
)

// minHighQualityCPUs is the core count below which a device is treated as low capability.
const minHighQualityCPUs = 4

// Probe is the one-time capability snapshot the quality hint is derived from.
type Probe struct {
	PixelRatio float64
	Mobile     bool
	CPUs       int
}

// DetectProbe inspects the running process.
func DetectProbe(pixelRatio float64) Probe {
	return Probe{
		PixelRatio: pixelRatio,
		Mobile:     runtime.GOOS == "android" || runtime.GOOS == "ios",
		CPUs:       runtime.NumCPU(),
	}
}

// QualityFor maps a probe to a preset.
// Mobile devices and machines with few cores get the low preset.
func QualityFor(p Probe) domain.QualitySettings {
	if p.Mobile || (p.CPUs > 0 && p.CPUs < minHighQualityCPUs) {
		return LowQuality
	}
	return HighQuality
}
