package render

import (
	"image/color"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// defaultParticleCap applies when the quality settings carry no budget.
const defaultParticleCap = 100

// referenceFrame is the frame time the per-frame constants are tuned for.
const referenceFrame = time.Second / 60

// Spawn rates in particles per reference frame. These are tuned by eye.
const (
	idleSpawnRate       = 0.5
	listeningSpawnRate  = 1.0
	listeningLevelRate  = 6.0
	speakingSpawnRate   = 2.0
	processingSpawnRate = 1.5
)

// Particle is one transient dot owned by the particle renderer.
type Particle struct {
	X, Y     float64
	VX, VY   float64
	Life     float64 // 1 when spawned, removed at 0
	Decay    float64 // Life lost per frame
	Size     float64
	Friction float64 // Velocity multiplier per frame, in (0,1]

	// FrequencyWeight is the spectrum magnitude a listening particle was born from.
	FrequencyWeight float64

	Color color.NRGBA
	State domain.VisualState
}

// Particles renders a bounded pool of particles whose spawn and force rules
// depend on the visual state that created them.
//
// The pool never exceeds Quality.ParticleCount. Particles of a state that is no
// longer drawn are dropped, and at the cap the transition target reclaims slots
// from the oldest particles of other states.
type Particles struct {
	seed  uint64
	rng   *rand.Rand
	pool  []Particle
	carry [4]float64 // fractional spawns per state
}

// NewParticles creates a particle renderer with a reproducible spawn sequence.
func NewParticles(seed uint64) *Particles {
	p := &Particles{seed: seed}
	p.Reset()
	return p
}

// Style implements Renderer.
func (*Particles) Style() domain.Style { return domain.StyleParticle }

// Reset empties the pool and restarts the spawn sequence.
func (p *Particles) Reset() {
	p.rng = rand.New(rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15))
	p.pool = p.pool[:0]
	p.carry = [4]float64{}
}

// Len returns the number of live particles.
func (p *Particles) Len() int { return len(p.pool) }

// Pool returns the live particles. The slice is reused by the next Render.
func (p *Particles) Pool() []Particle { return p.pool }

// Render implements Renderer. It advances existing particles, then spawns and
// draws per blend layer.
func (p *Particles) Render(c ports.Canvas, frame domain.AudioFrame, opts Options) error {
	w, h, ok := prepare(c)
	if !ok {
		return nil
	}

	limit := opts.Quality.ParticleCount
	if limit <= 0 {
		limit = defaultParticleCap
	}
	dt := frameScale(opts.Delta)

	p.update(w, h, frame, opts, dt)
	p.evict(Layers(opts))
	if len(p.pool) > limit {
		// The budget shrank; drop the oldest.
		p.pool = append(p.pool[:0], p.pool[len(p.pool)-limit:]...)
	}

	return Blend(c, opts, func(layer Layer) error {
		p.spawn(layer, w, h, frame, limit, dt, layer.State == opts.Target)
		p.draw(c, layer.State, opts)
		return nil
	})
}

// frameScale converts a frame delta to multiples of the reference frame.
// The first frame and stalls are clamped so particles never jump.
func frameScale(delta time.Duration) float64 {
	if delta <= 0 {
		return 1
	}
	return math.Min(4, float64(delta)/float64(referenceFrame))
}

// update applies forces and decay, removing dead particles in place.
func (p *Particles) update(w, h float64, frame domain.AudioFrame, opts Options, dt float64) {
	t := opts.seconds()
	cx, cy := w/2, h/2

	live := p.pool[:0]
	for _, pt := range p.pool {
		switch pt.State {
		case domain.StateListening:
			// Louder audio keeps the burst moving.
			boost := 1 + pt.FrequencyWeight*frame.Level*0.02
			pt.VX *= boost
			pt.VY *= boost
		case domain.StateSpeaking:
			// Weak pull towards the center turns tangential motion into orbits.
			pt.VX += (cx - pt.X) * 0.0015 * dt
			pt.VY += (cy - pt.Y) * 0.0015 * dt
		case domain.StateProcessing:
			// Rotate the velocity for a spiral.
			a := 0.05 * dt
			sin, cos := math.Sincos(a)
			pt.VX, pt.VY = pt.VX*cos-pt.VY*sin, pt.VX*sin+pt.VY*cos
		default:
			pt.VY -= 0.002 * dt
			pt.VX += math.Sin(t+pt.Y*0.01) * 0.01 * dt
		}

		pt.X += pt.VX * dt
		pt.Y += pt.VY * dt
		friction := math.Pow(pt.Friction, dt)
		pt.VX *= friction
		pt.VY *= friction
		pt.Life -= pt.Decay

		if pt.Life > 0 {
			live = append(live, pt)
		}
	}
	p.pool = live
}

// evict removes particles whose state has no layer this frame. They would
// never be drawn again but would still count against the cap.
func (p *Particles) evict(layers []Layer) {
	p.pool = slices.DeleteFunc(p.pool, func(pt Particle) bool {
		return !slices.ContainsFunc(layers, func(l Layer) bool { return l.State == pt.State })
	})
}

// reclaim drops the oldest particle of a state other than keep.
// It reports false when every particle belongs to keep.
func (p *Particles) reclaim(keep domain.VisualState) bool {
	i := slices.IndexFunc(p.pool, func(pt Particle) bool { return pt.State != keep })
	if i < 0 {
		return false
	}
	p.pool = slices.Delete(p.pool, i, i+1)
	return true
}

// spawn adds new particles for one layer, scaled by its opacity, up to limit.
// A layer allowed to reclaim takes slots from other states once the pool is full.
func (p *Particles) spawn(layer Layer, w, h float64, frame domain.AudioFrame, limit int, dt float64, reclaim bool) {
	var rate float64
	switch layer.State {
	case domain.StateListening:
		rate = listeningSpawnRate + listeningLevelRate*frame.Level
	case domain.StateSpeaking:
		rate = speakingSpawnRate
	case domain.StateProcessing:
		rate = processingSpawnRate
	default:
		rate = idleSpawnRate
	}

	slot := int(layer.State) % len(p.carry)
	p.carry[slot] += rate * layer.Alpha * dt
	n := int(p.carry[slot])
	p.carry[slot] -= float64(n)

	for i := 0; i < n; i++ {
		if len(p.pool) >= limit && !(reclaim && p.reclaim(layer.State)) {
			p.carry[slot] = 0
			return
		}
		p.pool = append(p.pool, p.newParticle(layer.State, w, h, frame))
	}
}

// between returns a uniform value in [lo, hi).
func (p *Particles) between(lo, hi float64) float64 {
	return lo + (hi-lo)*p.rng.Float64()
}

func (p *Particles) newParticle(state domain.VisualState, w, h float64, frame domain.AudioFrame) Particle {
	cx, cy := w/2, h/2
	radius := math.Min(w, h) * 0.3
	angle := p.between(0, 2*math.Pi)
	sin, cos := math.Sincos(angle)

	switch state {
	case domain.StateListening:
		weight := 0.0
		if n := len(frame.FrequencyBins); n > 0 {
			weight = float64(frame.FrequencyBins[p.rng.IntN(n)]) / 255
		}
		speed := (1 + frame.Level*4) * p.between(0.5, 1)
		return Particle{
			X: cx, Y: cy,
			VX: cos * speed, VY: sin * speed,
			Life: 1, Decay: p.between(0.012, 0.02),
			Size:            p.between(1.5, 4) * (1 + frame.Level),
			Friction:        0.96,
			FrequencyWeight: weight,
			Color:           Mix(ColorListening, Lighten(ColorListening, 0.6), weight),
			State:           state,
		}
	case domain.StateSpeaking:
		r := radius * p.between(0.8, 1.2)
		speed := p.between(1.2, 1.8)
		return Particle{
			X: cx + cos*r, Y: cy + sin*r,
			VX: -sin * speed, VY: cos * speed,
			Life: 1, Decay: p.between(0.008, 0.012),
			Size:     p.between(1.5, 3.5),
			Friction: 0.99,
			Color:    ShiftHue(ColorSpeaking, p.between(-0.03, 0.03)),
			State:    state,
		}
	case domain.StateProcessing:
		r := radius * p.between(0.1, 0.3)
		return Particle{
			X: cx + cos*r, Y: cy + sin*r,
			VX: -sin*1.5 + cos*0.4, VY: cos*1.5 + sin*0.4,
			Life: 1, Decay: p.between(0.009, 0.013),
			Size:     p.between(1, 2.5),
			Friction: 0.98,
			Color:    ColorProcessing,
			State:    state,
		}
	default:
		return Particle{
			X: p.between(0, w), Y: h + 5,
			VX: p.between(-0.2, 0.2), VY: -p.between(0.3, 0.8),
			Life: 1, Decay: p.between(0.004, 0.008),
			Size:     p.between(1, 3),
			Friction: 0.995,
			Color:    ColorIdle,
			State:    state,
		}
	}
}

// draw paints the particles that belong to state.
func (p *Particles) draw(c ports.Canvas, state domain.VisualState, opts Options) {
	intensity := opts.intensity()
	if state == domain.StateIdle {
		intensity *= opts.idleScale()
	}
	for _, pt := range p.pool {
		if pt.State != state {
			continue
		}
		c.FillCircle(pt.X, pt.Y, pt.Size*(0.5+0.5*pt.Life), Fade(pt.Color, pt.Life*intensity))
	}
}
