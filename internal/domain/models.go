// Package domain contains the core types of the visualization pipeline.
// These types are independent of capture backends, drawing surfaces and UI toolkits.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTransitionDuration is how long a cross-fade between two visual states lasts.
const DefaultTransitionDuration = 800 * time.Millisecond

// VisualState is the named mode that drives which motion pattern a renderer draws.
type VisualState int

// Visual states.
const (
	StateIdle VisualState = iota
	StateListening
	StateSpeaking
	StateProcessing
)

// VisualStates lists every state in declaration order.
var VisualStates = []VisualState{StateIdle, StateListening, StateSpeaking, StateProcessing}

// String returns the lower-case name of the state.
func (s VisualState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Valid reports whether s is one of the four known states.
func (s VisualState) Valid() bool {
	return s >= StateIdle && s <= StateProcessing
}

// ParseVisualState converts a state name to a VisualState.
func ParseVisualState(name string) (VisualState, error) {
	for _, s := range VisualStates {
		if strings.EqualFold(strings.TrimSpace(name), s.String()) {
			return s, nil
		}
	}
	return StateIdle, NewValidationError("state", name, "unknown visual state")
}

// Flags are the host-supplied inputs that decide the target visual state.
// They are not mutually exclusive.
type Flags struct {
	Active       bool
	UserSpeaking bool
	AISpeaking   bool
	Processing   bool
}

// Target resolves the flags to a single state.
//
// Precedence: processing > listening (user speaking) > speaking (AI audio) > idle.
// Active does not take part; an inactive session with no other flag is idle.
func (f Flags) Target() VisualState {
	switch {
	case f.Processing:
		return StateProcessing
	case f.UserSpeaking:
		return StateListening
	case f.AISpeaking:
		return StateSpeaking
	default:
		return StateIdle
	}
}

// TransitionState tracks the cross-fade between the current and target state.
//
// Current and Target are equal except while Progress is below 1.
type TransitionState struct {
	Current  VisualState
	Target   VisualState
	Progress float64
	Duration time.Duration
}

// NewTransitionState returns a settled transition on state s.
func NewTransitionState(s VisualState, duration time.Duration) TransitionState {
	if duration <= 0 {
		duration = DefaultTransitionDuration
	}
	return TransitionState{
		Current:  s,
		Target:   s,
		Progress: 1,
		Duration: duration,
	}
}

// Retarget starts a transition towards target. The previous target becomes the
// current state and progress restarts at zero. It reports false and returns t
// unchanged when target equals the existing target.
func (t TransitionState) Retarget(target VisualState) (TransitionState, bool) {
	if target == t.Target {
		return t, false
	}
	t.Current = t.Target
	t.Target = target
	t.Progress = 0
	return t, true
}

// Advance moves progress forward by delta, clamped to [0,1].
// When progress reaches 1 the current state settles on the target.
func (t TransitionState) Advance(delta time.Duration) TransitionState {
	if t.Progress >= 1 {
		t.Progress = 1
		t.Current = t.Target
		return t
	}
	if delta < 0 {
		delta = 0
	}

	duration := t.Duration
	if duration <= 0 {
		duration = DefaultTransitionDuration
	}

	t.Progress += float64(delta) / float64(duration)
	if t.Progress >= 1 {
		t.Progress = 1
		t.Current = t.Target
	}
	return t
}

// Settled reports whether no transition is in flight.
func (t TransitionState) Settled() bool {
	return t.Progress >= 1 && t.Current == t.Target
}

// Bands holds the normalized mean magnitude of three frequency ranges.
type Bands struct {
	Bass   float64
	Mid    float64
	Treble float64
}

// AudioFrame is one analysis snapshot of the capture device.
// It is produced once per animation frame and discarded after rendering.
// The zero value stands for "no samples".
type AudioFrame struct {
	FrequencyBins     []uint8
	TimeDomainSamples []uint8
	Level             float64
	Bands             Bands
}

// Empty reports whether the frame carries no samples.
func (f AudioFrame) Empty() bool {
	return len(f.FrequencyBins) == 0 && len(f.TimeDomainSamples) == 0
}

// QualitySettings scale rendering workload to the device.
// They are derived once and never mutated by renderers.
type QualitySettings struct {
	ParticleCount      int
	AnimationSmoothing float64
	EffectIntensity    float64
}
