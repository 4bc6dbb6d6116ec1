package scroll

import (
	"context"
	"sync"
)

// Pending is the completion handle returned by RequestScroll.
// It resolves exactly once, always with a Result. Unlike Session it is
// safe to use from any goroutine.
type Pending struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(result Result) {
	p.once.Do(func() {
		p.result = result
		close(p.done)
	})
}

// Done is closed once the scroll has ended.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome if the scroll has ended.
func (p *Pending) Result() (Result, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the scroll ends or ctx is done.
// A canceled wait does not affect the animation.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
