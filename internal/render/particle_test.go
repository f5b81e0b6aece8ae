package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwise/voiceviz/internal/adapter/draw/trace"
	"github.com/wealthwise/voiceviz/internal/domain"
)

func fullScaleFrame() domain.AudioFrame {
	bins := make([]uint8, 256)
	td := make([]uint8, 256)
	for i := range bins {
		bins[i] = 255
		td[i] = 255
	}
	return domain.AudioFrame{FrequencyBins: bins, TimeDomainSamples: td, Level: 1, Bands: domain.Bands{Bass: 1, Mid: 1, Treble: 1}}
}

func TestParticles_PoolNeverExceedsCap(t *testing.T) {
	for _, quality := range []domain.QualitySettings{
		{ParticleCount: 150, EffectIntensity: 1},
		{ParticleCount: 60, EffectIntensity: 0.7},
	} {
		p := NewParticles(testSeed)
		c := trace.New(800, 600)
		frame := fullScaleFrame()

		var elapsed time.Duration
		peak := 0
		for i := 0; i < 10000; i++ {
			elapsed += 16 * time.Millisecond
			c.Reset()
			require.NoError(t, p.Render(c, frame, Options{
				Current: domain.StateListening, Target: domain.StateListening, Progress: 1,
				Elapsed: elapsed, Delta: 16 * time.Millisecond, Quality: quality, Active: true,
			}))
			if p.Len() > quality.ParticleCount {
				t.Fatalf("frame %d: pool %d exceeds cap %d", i, p.Len(), quality.ParticleCount)
			}
			peak = max(peak, p.Len())
		}
		assert.Equal(t, quality.ParticleCount, peak, "high level should saturate the budget")
	}
}

func TestParticles_CapHoldsAcrossTransitionsAndStalls(t *testing.T) {
	p := NewParticles(7)
	c := trace.New(400, 400)
	quality := domain.QualitySettings{ParticleCount: 60}
	states := domain.VisualStates

	var elapsed time.Duration
	for i := 0; i < 2000; i++ {
		delta := 16 * time.Millisecond
		if i%97 == 0 {
			delta = 500 * time.Millisecond
		}
		elapsed += delta
		c.Reset()
		require.NoError(t, p.Render(c, fullScaleFrame(), Options{
			Current:  states[(i/100)%4],
			Target:   states[(i/100+1)%4],
			Progress: float64(i%100) / 100,
			Elapsed:  elapsed, Delta: delta, Quality: quality,
		}))
		require.LessOrEqual(t, p.Len(), quality.ParticleCount)
	}
}

func TestParticles_ShrinkingBudgetTrimsPool(t *testing.T) {
	p := NewParticles(1)
	c := trace.New(400, 400)
	opts := Options{Target: domain.StateListening, Progress: 1, Delta: 16 * time.Millisecond, Quality: domain.QualitySettings{ParticleCount: 150}}
	for i := 0; i < 200; i++ {
		opts.Elapsed += opts.Delta
		require.NoError(t, p.Render(c, fullScaleFrame(), opts))
	}
	require.Greater(t, p.Len(), 60)

	opts.Quality.ParticleCount = 60
	require.NoError(t, p.Render(c, fullScaleFrame(), opts))
	assert.LessOrEqual(t, p.Len(), 60)
}

func TestParticles_LifeDecreasesByDecayEachFrame(t *testing.T) {
	p := NewParticles(testSeed)
	c := trace.New(400, 300)
	opts := Options{Target: domain.StateSpeaking, Progress: 1, Delta: 16 * time.Millisecond, Quality: testQuality}

	for i := 0; i < 30; i++ {
		opts.Elapsed += opts.Delta
		require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))
	}
	require.NotZero(t, p.Len())

	prev := append([]Particle(nil), p.Pool()...)
	opts.Elapsed += opts.Delta
	require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))
	next := p.Pool()

	j := 0
	for _, old := range prev {
		want := old.Life - old.Decay
		if want <= 0 {
			continue
		}
		require.Less(t, j, len(next))
		assert.InDelta(t, want, next[j].Life, 1e-12)
		assert.Less(t, next[j].Life, old.Life)
		j++
	}

	for _, pt := range next {
		assert.Greater(t, pt.Life, 0.0)
		assert.LessOrEqual(t, pt.Life, 1.0)
		assert.Greater(t, pt.Friction, 0.0)
		assert.LessOrEqual(t, pt.Friction, 1.0)
	}
}

func TestParticles_DeadParticlesAreRemoved(t *testing.T) {
	p := NewParticles(3)
	c := trace.New(400, 300)
	opts := Options{Target: domain.StateProcessing, Progress: 1, Delta: 16 * time.Millisecond, Quality: testQuality}
	for i := 0; i < 20; i++ {
		opts.Elapsed += opts.Delta
		require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))
	}
	require.NotZero(t, p.Len())

	// Without any layer spawning, every particle eventually dies.
	for i := 0; i < 500; i++ {
		p.update(400, 300, domain.AudioFrame{}, opts, 1)
	}
	assert.Zero(t, p.Len())
}

func TestParticles_StatesSpawnDistinctParticles(t *testing.T) {
	for _, state := range domain.VisualStates {
		p := NewParticles(9)
		c := trace.New(400, 300)
		opts := Options{Target: state, Progress: 1, Delta: 16 * time.Millisecond, Quality: testQuality, Active: true}
		for i := 0; i < 60; i++ {
			opts.Elapsed += opts.Delta
			require.NoError(t, p.Render(c, fullScaleFrame(), opts))
		}
		require.NotZero(t, p.Len(), state.String())
		for _, pt := range p.Pool() {
			assert.Equal(t, state, pt.State)
		}
		assert.Equal(t, StateColor(state).A, p.Pool()[0].Color.A)
	}
}

func TestParticles_ListeningRateFollowsLevel(t *testing.T) {
	count := func(level float64) int {
		p := NewParticles(5)
		c := trace.New(400, 300)
		frame := fullScaleFrame()
		frame.Level = level
		opts := Options{Target: domain.StateListening, Progress: 1, Delta: 16 * time.Millisecond, Quality: domain.QualitySettings{ParticleCount: 10000}}
		for i := 0; i < 20; i++ {
			opts.Elapsed += opts.Delta
			require.NoError(t, p.Render(c, frame, opts))
		}
		return p.Len()
	}
	assert.Greater(t, count(1), count(0))
}

func TestParticles_ResetRestartsSequence(t *testing.T) {
	p := NewParticles(11)
	opts := Options{Target: domain.StateIdle, Progress: 1, Delta: 16 * time.Millisecond, Quality: testQuality}

	first := trace.New(200, 200)
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Render(first, domain.AudioFrame{}, opts))
	}
	p.Reset()
	assert.Zero(t, p.Len())

	second := trace.New(200, 200)
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Render(second, domain.AudioFrame{}, opts))
	}
	assert.Equal(t, first.Calls(), second.Calls())
}

func countByState(pool []Particle) map[domain.VisualState]int {
	counts := make(map[domain.VisualState]int)
	for _, pt := range pool {
		counts[pt.State]++
	}
	return counts
}

func TestParticles_TargetReclaimsFadedBudget(t *testing.T) {
	p := NewParticles(testSeed)
	c := trace.New(400, 300)
	quality := domain.QualitySettings{ParticleCount: 60, EffectIntensity: 0.7}
	delta := 16 * time.Millisecond
	duration := domain.DefaultTransitionDuration

	opts := Options{Current: domain.StateIdle, Target: domain.StateIdle, Progress: 1, Delta: delta, Quality: quality, Active: true}
	for i := 0; i < 600; i++ {
		opts.Elapsed += delta
		require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))
	}
	require.GreaterOrEqual(t, p.Len(), quality.ParticleCount-5, "idle should saturate the low budget")

	opts.Target = domain.StateListening
	frames := int(duration / delta)
	var counts map[domain.VisualState]int
	for i := 1; i < frames; i++ {
		opts.Elapsed += delta
		opts.Progress = float64(time.Duration(i)*delta) / float64(duration)
		require.NoError(t, p.Render(c, fullScaleFrame(), opts))
		require.LessOrEqual(t, p.Len(), quality.ParticleCount)
	}
	// Still mid-transition: the target already owns most of the budget.
	counts = countByState(p.Pool())
	assert.Greater(t, counts[domain.StateListening], counts[domain.StateIdle])

	opts.Current, opts.Progress = domain.StateListening, 1
	for i := 0; i < 10; i++ {
		opts.Elapsed += delta
		require.NoError(t, p.Render(c, fullScaleFrame(), opts))
	}
	counts = countByState(p.Pool())
	assert.Zero(t, counts[domain.StateIdle], "faded particles must not hold the budget")
	assert.Equal(t, quality.ParticleCount, counts[domain.StateListening])
}

func TestParticles_UndrawnStatesAreEvicted(t *testing.T) {
	p := NewParticles(5)
	c := trace.New(400, 300)
	opts := Options{Target: domain.StateSpeaking, Progress: 1, Delta: 16 * time.Millisecond, Quality: testQuality}
	for i := 0; i < 60; i++ {
		opts.Elapsed += opts.Delta
		require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))
	}
	require.NotZero(t, p.Len())

	opts.Current, opts.Target = domain.StateProcessing, domain.StateProcessing
	opts.Elapsed += opts.Delta
	require.NoError(t, p.Render(c, domain.AudioFrame{}, opts))

	for _, pt := range p.Pool() {
		assert.Equal(t, domain.StateProcessing, pt.State)
	}
}
