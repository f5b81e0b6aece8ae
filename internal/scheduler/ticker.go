package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wealthwise/voiceviz/internal/ports"
)

// DefaultRate is the frame rate used when none is configured.
const DefaultRate = 60

// Ticker fires pending frame requests from one goroutine at a fixed rate.
type Ticker struct {
	q        queue
	interval time.Duration
	logger   *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewTicker starts a scheduler firing rate frames per second.
// A rate <= 0 uses DefaultRate. Close must be called to stop the goroutine.
func NewTicker(rate int, logger *slog.Logger) *Ticker {
	if rate <= 0 {
		rate = DefaultRate
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &Ticker{
		interval: time.Second / time.Duration(rate),
		logger:   logger.With(slog.String("component", "scheduler")),
		done:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

// Interval returns the time between frames.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// RequestFrame implements ports.Scheduler.
func (t *Ticker) RequestFrame(cb ports.FrameCallback) (ports.FrameID, error) {
	return t.q.add(cb)
}

// CancelFrame implements ports.Scheduler.
func (t *Ticker) CancelFrame(id ports.FrameID) {
	t.q.cancel(id)
}

// Pending returns the number of queued requests.
func (t *Ticker) Pending() int {
	return t.q.len()
}

func (t *Ticker) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-t.done:
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			for _, r := range t.q.take() {
				t.fire(r, delta)
			}
		}
	}
}

// fire runs one callback. A panicking callback must not stop the frame loop.
func (t *Ticker) fire(r request, delta time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("frame callback panicked",
				slog.Any("panic", p),
				slog.Uint64("frame_id", uint64(r.id)))
		}
	}()
	r.cb(delta)
}

// Close stops the frame goroutine and waits for it to exit.
// Pending requests are dropped and later requests fail with domain.ErrSchedulerClosed.
func (t *Ticker) Close() error {
	t.once.Do(func() {
		t.q.close()
		close(t.done)
	})
	t.wg.Wait()
	return nil
}

var _ ports.Scheduler = (*Ticker)(nil)
