package scheduler

import (
	"time"

	"github.com/wealthwise/voiceviz/internal/ports"
)

// Manual fires frames only when Tick is called.
// It drives headless rendering and makes controller tests deterministic.
type Manual struct {
	q       queue
	elapsed time.Duration
}

// NewManual creates a manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// RequestFrame implements ports.Scheduler.
func (m *Manual) RequestFrame(cb ports.FrameCallback) (ports.FrameID, error) {
	return m.q.add(cb)
}

// CancelFrame implements ports.Scheduler.
func (m *Manual) CancelFrame(id ports.FrameID) {
	m.q.cancel(id)
}

// Tick fires every pending request with delta and returns how many ran.
// Callbacks that request another frame are queued for the next Tick.
func (m *Manual) Tick(delta time.Duration) int {
	m.elapsed += delta
	due := m.q.take()
	for _, r := range due {
		r.cb(delta)
	}
	return len(due)
}

// Pending returns the number of queued requests.
func (m *Manual) Pending() int {
	return m.q.len()
}

// Elapsed returns the sum of all ticked deltas.
func (m *Manual) Elapsed() time.Duration {
	return m.elapsed
}

// Close drops pending requests; later requests fail with domain.ErrSchedulerClosed.
func (m *Manual) Close() error {
	m.q.close()
	return nil
}

var _ ports.Scheduler = (*Manual)(nil)
