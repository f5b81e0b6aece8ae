package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_TargetPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  VisualState
	}{
		{"none", Flags{}, StateIdle},
		{"active only", Flags{Active: true}, StateIdle},
		{"ai speaking", Flags{AISpeaking: true}, StateSpeaking},
		{"user speaking", Flags{UserSpeaking: true}, StateListening},
		{"user beats ai", Flags{UserSpeaking: true, AISpeaking: true}, StateListening},
		{"processing beats user", Flags{Processing: true, UserSpeaking: true}, StateProcessing},
		{"processing beats all", Flags{Active: true, Processing: true, UserSpeaking: true, AISpeaking: true}, StateProcessing},
		{"processing beats ai", Flags{Processing: true, AISpeaking: true}, StateProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.Target())
		})
	}
}

func TestTransitionState_Retarget(t *testing.T) {
	ts := NewTransitionState(StateIdle, 0)
	assert.Equal(t, DefaultTransitionDuration, ts.Duration)
	assert.True(t, ts.Settled())

	next, changed := ts.Retarget(StateIdle)
	assert.False(t, changed)
	assert.Equal(t, ts, next)

	next, changed = ts.Retarget(StateListening)
	require.True(t, changed)
	assert.Equal(t, StateIdle, next.Current)
	assert.Equal(t, StateListening, next.Target)
	assert.Zero(t, next.Progress)

	// Retarget mid-transition: current takes the previous target.
	mid := next.Advance(200 * time.Millisecond)
	again, changed := mid.Retarget(StateSpeaking)
	require.True(t, changed)
	assert.Equal(t, StateListening, again.Current)
	assert.Equal(t, StateSpeaking, again.Target)
	assert.Zero(t, again.Progress)
}

func TestTransitionState_AdvanceMonotonicAndClamped(t *testing.T) {
	ts, _ := NewTransitionState(StateIdle, 800*time.Millisecond).Retarget(StateProcessing)

	prev := ts.Progress
	for i := 0; i < 200; i++ {
		ts = ts.Advance(16 * time.Millisecond)
		assert.GreaterOrEqual(t, ts.Progress, prev)
		assert.LessOrEqual(t, ts.Progress, 1.0)
		assert.GreaterOrEqual(t, ts.Progress, 0.0)
		prev = ts.Progress
	}

	assert.Equal(t, 1.0, ts.Progress)
	assert.Equal(t, StateProcessing, ts.Current)
	assert.True(t, ts.Settled())

	// Negative deltas never move progress backwards.
	ts2, _ := ts.Retarget(StateIdle)
	ts2 = ts2.Advance(100 * time.Millisecond)
	before := ts2.Progress
	ts2 = ts2.Advance(-time.Second)
	assert.Equal(t, before, ts2.Progress)
}

func TestTransitionState_AdvanceExactDuration(t *testing.T) {
	ts, _ := NewTransitionState(StateIdle, 800*time.Millisecond).Retarget(StateListening)
	ts = ts.Advance(400 * time.Millisecond)
	assert.InDelta(t, 0.5, ts.Progress, 1e-9)
	assert.Equal(t, StateIdle, ts.Current)

	ts = ts.Advance(400 * time.Millisecond)
	assert.Equal(t, 1.0, ts.Progress)
	assert.Equal(t, StateListening, ts.Current)
}

func TestParseVisualState(t *testing.T) {
	for _, s := range VisualStates {
		got, err := ParseVisualState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseVisualState("dancing")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestParseStyle(t *testing.T) {
	for _, s := range Styles {
		got, err := ParseStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)

		byLabel, err := ParseStyleLabel(s.Label())
		require.NoError(t, err)
		assert.Equal(t, s, byLabel)
	}

	got, err := ParseStyle(" Bars ")
	require.NoError(t, err)
	assert.Equal(t, StyleBars, got)

	got, err = ParseStyle("plasma")
	assert.ErrorIs(t, err, ErrUnsupportedStyle)
	assert.Equal(t, DefaultStyle, got)

	assert.False(t, Style(42).Valid())
	assert.Equal(t, "style(42)", Style(42).String())
	assert.Len(t, Styles, StyleCount)
}

func TestCaptureErrorMatchesUnavailable(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewCaptureError("open", "malgo", "device init failed", cause)

	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "capture malgo.open failed")
}

func TestAudioFrameEmpty(t *testing.T) {
	assert.True(t, AudioFrame{}.Empty())
	assert.False(t, AudioFrame{FrequencyBins: []uint8{1}}.Empty())
}
