package loop

import (
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// Manual is a scheduler whose frames are fired explicitly.
// It is meant for tests and for hosts that own their own frame clock.
// It is not safe for concurrent use.
type Manual struct {
	now   time.Time
	queue frameQueue
}

// NewManual returns a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// ScheduleTick implements scroll.Scheduler.
func (m *Manual) ScheduleTick(fn func(now time.Time)) scroll.TickToken {
	return m.queue.add(fn)
}

// CancelTick implements scroll.Scheduler.
func (m *Manual) CancelTick(token scroll.TickToken) {
	m.queue.cancel(token)
}

// Now implements scroll.Scheduler.
func (m *Manual) Now() time.Time {
	return m.now
}

// Frame fires every callback scheduled before the call, passing now.
// The clock moves to now. It returns the number of callbacks run.
func (m *Manual) Frame(now time.Time) int {
	m.now = now
	m.queue.begin()
	n := 0
	for {
		fn, ok := m.queue.pop()
		if !ok {
			return n
		}
		fn(now)
		n++
	}
}

// Advance moves the clock by d and fires a frame.
func (m *Manual) Advance(d time.Duration) int {
	return m.Frame(m.now.Add(d))
}

// Pending returns the number of callbacks waiting for the next frame.
func (m *Manual) Pending() int {
	return m.queue.len()
}
