// Package scheduler provides the animation-frame primitives that drive the
// visualization controller.
package scheduler

import (
	"sync"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

type request struct {
	id ports.FrameID
	cb ports.FrameCallback
}

// queue holds pending frame requests in request order.
// Requests made while a frame is being dispatched wait for the next frame.
type queue struct {
	mu      sync.Mutex
	nextID  ports.FrameID
	pending []request
	closed  bool
}

func (q *queue) add(cb ports.FrameCallback) (ports.FrameID, error) {
	if cb == nil {
		panic("frame callback cannot be nil")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, domain.ErrSchedulerClosed
	}
	q.nextID++
	q.pending = append(q.pending, request{id: q.nextID, cb: cb})
	return q.nextID, nil
}

func (q *queue) cancel(id ports.FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.pending {
		if r.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// take removes and returns every pending request.
func (q *queue) take() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := q.pending
	q.pending = nil
	return due
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// close drops pending requests. It reports false if already closed.
func (q *queue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true
	q.pending = nil
	return true
}
