package audio

import "math"

// Capture conditioning constants. They are tuned by ear for speech.
const (
	agcAttackMs    = 20.0
	agcReleaseMs   = 350.0
	agcTarget      = 0.5
	agcMaxGain     = 6.0
	agcMinGain     = 0.1
	agcGainAttack  = 0.03
	agcGainRelease = 0.03

	// noiseGateThreshold is the block peak below which a block is muted.
	noiseGateThreshold = 0.003
)

// ConditionerConfig selects which processing stages run.
type ConditionerConfig struct {
	SampleRate int
	AutoGain   bool
	NoiseGate  bool
}

// Conditioner applies automatic gain and a noise gate to captured blocks.
// It stands in for the processing constraints a browser applies to getUserMedia.
type Conditioner struct {
	cfg  ConditionerConfig
	env  float64
	gain float64
}

// NewConditioner creates a conditioner. A zero sample rate defaults to 48 kHz.
func NewConditioner(cfg ConditionerConfig) *Conditioner {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	return &Conditioner{cfg: cfg, gain: 1}
}

// Enabled reports whether any stage is active.
func (c *Conditioner) Enabled() bool {
	return c.cfg.AutoGain || c.cfg.NoiseGate
}

// Gain returns the current AGC gain.
func (c *Conditioner) Gain() float64 { return c.gain }

// Process conditions samples in place.
func (c *Conditioner) Process(samples []float32) {
	if len(samples) == 0 || !c.Enabled() {
		return
	}

	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}

	if c.cfg.NoiseGate && peak < noiseGateThreshold {
		clear(samples)
		return
	}

	if !c.cfg.AutoGain {
		return
	}

	c.updateEnvelope(peak, len(samples))

	desired := 1.0
	if c.env > 0 {
		desired = agcTarget / c.env
	}
	desired = math.Min(agcMaxGain, math.Max(agcMinGain, desired))

	if desired > c.gain {
		c.gain += agcGainAttack * (desired - c.gain)
	} else {
		c.gain += agcGainRelease * (desired - c.gain)
	}

	g := float32(c.gain)
	for i, s := range samples {
		v := s * g
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		samples[i] = v
	}
}

// updateEnvelope follows the block peak with separate attack and release times.
func (c *Conditioner) updateEnvelope(peak float64, blockLen int) {
	timeMs := agcReleaseMs
	if peak > c.env {
		timeMs = agcAttackMs
	}
	coeff := math.Exp(-float64(blockLen) / (timeMs / 1000 * float64(c.cfg.SampleRate)))
	c.env = coeff*c.env + (1-coeff)*peak
}
