package synthetic

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/logger"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/testutil"
)

func TestSource_EmitDeliversTone(t *testing.T) {
	src := New(WithTone(440, 0.5), WithLogger(logger.NewTestLogger()))

	var got []float32
	err := src.Open(context.Background(), ports.CaptureConfig{SampleRate: 8000}, func(samples []float32) {
		got = append(got, samples...)
	})
	require.NoError(t, err)
	assert.True(t, src.IsOpen())

	src.Emit(800)
	require.Len(t, got, 800)
	assert.Equal(t, 800, src.Produced())

	var peak float32
	for _, s := range got {
		assert.LessOrEqual(t, s, float32(0.5))
		assert.GreaterOrEqual(t, s, float32(-0.5))
		peak = max(peak, s)
	}
	assert.Greater(t, peak, float32(0.1))

	require.NoError(t, src.Close())
	src.Emit(100)
	assert.Len(t, got, 800, "closed source must not deliver")
}

func TestSource_PumpEmitsOneBlock(t *testing.T) {
	src := New()

	var calls, total int
	require.NoError(t, src.Open(context.Background(), ports.CaptureConfig{SampleRate: 8000}, func(samples []float32) {
		calls++
		total += len(samples)
	}))

	require.NoError(t, src.Pump())
	require.NoError(t, src.Pump())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 160, total)

	require.NoError(t, src.Close())
	require.NoError(t, src.Pump())
	assert.Equal(t, 2, calls)
}

func TestSource_OpenIsIdempotent(t *testing.T) {
	src := New()
	handler := func([]float32) {}

	require.NoError(t, src.Open(context.Background(), ports.CaptureConfig{}, handler))
	require.NoError(t, src.Open(context.Background(), ports.CaptureConfig{}, handler))
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestSource_FailOpen(t *testing.T) {
	src := New()
	src.SetFailOpen(ErrPermissionDenied)

	err := src.Open(context.Background(), ports.CaptureConfig{}, func([]float32) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, src.IsOpen())

	src.SetFailOpen(nil)
	require.NoError(t, src.Open(context.Background(), ports.CaptureConfig{}, func([]float32) {}))
	require.NoError(t, src.Close())
}

func TestSource_OpenRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Open(ctx, ports.CaptureConfig{}, func([]float32) {})
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_IntervalProducerStopsOnClose(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	var delivered atomic.Int64
	src := New(WithInterval(5 * time.Millisecond))
	require.NoError(t, src.Open(context.Background(), ports.CaptureConfig{SampleRate: 16000}, func(samples []float32) {
		delivered.Add(int64(len(samples)))
	}))

	assert.Eventually(t, func() bool { return delivered.Load() >= 160 }, time.Second, 5*time.Millisecond)
	require.NoError(t, src.Close())

	after := delivered.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, delivered.Load())
}

func TestSource_Devices(t *testing.T) {
	devices, err := New().Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Default)
}
