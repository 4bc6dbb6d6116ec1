package loop

import (
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

type callback struct {
	token scroll.TickToken
	fn    func(now time.Time)
}

// frameQueue holds callbacks for the next frame.
// Callbacks added while a frame runs wait for the following one.
type frameQueue struct {
	next    scroll.TickToken
	pending []callback
	running []callback
}

func (q *frameQueue) add(fn func(now time.Time)) scroll.TickToken {
	q.next++
	q.pending = append(q.pending, callback{token: q.next, fn: fn})
	return q.next
}

// cancel drops a callback whether it waits for the next frame or for its turn in the current one.
func (q *frameQueue) cancel(token scroll.TickToken) {
	for i, cb := range q.pending {
		if cb.token == token {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
	for i := range q.running {
		if q.running[i].token == token {
			q.running[i].fn = nil
			return
		}
	}
}

// begin moves the waiting callbacks into the current frame.
func (q *frameQueue) begin() {
	q.running = q.pending
	q.pending = nil
}

// pop returns the next live callback of the current frame.
func (q *frameQueue) pop() (func(now time.Time), bool) {
	for len(q.running) > 0 {
		cb := q.running[0]
		q.running = q.running[1:]
		if cb.fn != nil {
			return cb.fn, true
		}
	}
	return nil, false
}

func (q *frameQueue) len() int {
	return len(q.pending)
}
