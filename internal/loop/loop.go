// Package loop provides the frame schedulers that drive scroll sessions.
//
// Loop is the production scheduler: a single goroutine that serializes posted
// work and fires tick callbacks once per frame interval. Every scroll.Session
// bound to a Loop must only be touched from inside Post or Do callbacks.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// DefaultInterval approximates a 60Hz display refresh.
const DefaultInterval = 16 * time.Millisecond

// taskBuffer is the capacity of the posted-task queue.
const taskBuffer = 256

// ErrClosed is returned when work is posted to a stopped loop.
var ErrClosed = errors.New("loop closed")

// Loop is a frame-driven event loop implementing scroll.Scheduler.
type Loop struct {
	interval time.Duration
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	queue frameQueue
}

// New creates a loop that fires frames every interval.
func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		interval: interval,
		tasks:    make(chan func(), taskBuffer),
		done:     make(chan struct{}),
	}
}

// Interval returns the frame interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run processes tasks and frames until ctx is canceled.
// Tasks still queued at shutdown are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", l.interval).Msg("Frame loop started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Frame loop stopped")
			return
		case fn := <-l.tasks:
			l.safeRun(func() { fn() })
		case now := <-ticker.C:
			l.frame(now)
		}
	}
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	err := l.Post(func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may already be running; give it the chance to finish.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScheduleTick implements scroll.Scheduler.
func (l *Loop) ScheduleTick(fn func(now time.Time)) scroll.TickToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.add(fn)
}

// CancelTick implements scroll.Scheduler.
func (l *Loop) CancelTick(token scroll.TickToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue.cancel(token)
}

// Now implements scroll.Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Pending returns the number of callbacks waiting for the next frame.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.len()
}

func (l *Loop) frame(now time.Time) {
	l.mu.Lock()
	l.queue.begin()
	l.mu.Unlock()

	for {
		l.mu.Lock()
		fn, ok := l.queue.pop()
		l.mu.Unlock()
		if !ok {
			return
		}
		l.safeRun(func() { fn(now) })
	}
}

// safeRun keeps a panicking callback from taking down the loop.
func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Panic in frame loop callback")
		}
	}()
	fn()
}
