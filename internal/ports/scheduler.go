package ports

import "time"

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameCallback is invoked once per frame with the time elapsed since the previous frame.
type FrameCallback func(delta time.Duration)

// Scheduler is the animation-frame primitive.
// It plays the role of requestAnimationFrame: each request fires at most once.
//
// Implementations:
//   - scheduler.Ticker fires callbacks on a goroutine at a fixed rate
//   - scheduler.Manual fires callbacks when the test calls Tick
type Scheduler interface {
	// RequestFrame schedules cb for the next frame.
	// Returns domain.ErrSchedulerClosed when the scheduler has been closed.
	RequestFrame(cb FrameCallback) (FrameID, error)

	// CancelFrame removes a pending request. Unknown or fired IDs are ignored.
	CancelFrame(id FrameID)
}
