// Package registry maps scroll containers to their sessions.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// Interruption causes used when the registry drops sessions.
const (
	CauseUnbound = "container unbound"
	CauseClosed  = "registry closed"
)

// ErrAlreadyBound is returned by Bind when the container already has a session.
var ErrAlreadyBound = errors.New("container already bound to a session")

// Registry owns one session per container ID.
//
// The map itself is safe for concurrent use, but the sessions it returns
// follow the scroll package rules and must only be driven from the
// scheduler's goroutine. Unbind and Close interrupt sessions, so they are
// subject to the same rule.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*scroll.Session

	scheduler scroll.Scheduler
	config    scroll.Config
}

// New creates a registry whose sessions share scheduler and cfg.
func New(scheduler scroll.Scheduler, cfg scroll.Config) *Registry {
	return &Registry{
		sessions:  make(map[string]*scroll.Session),
		scheduler: scheduler,
		config:    cfg,
	}
}

// For returns the session for c, creating it if needed.
func (r *Registry) For(c scroll.Container) *scroll.Session {
	id := c.ID()

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = scroll.NewSession(c, r.scheduler, r.config)
	r.sessions[id] = s

	log.Debug().Str("container", id).Msg("Scroll session created")
	return s
}

// Bind creates a session for c. It fails if one already exists.
func (r *Registry) Bind(c scroll.Container) (*scroll.Session, error) {
	id := c.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyBound, id)
	}
	s := scroll.NewSession(c, r.scheduler, r.config)
	r.sessions[id] = s
	return s, nil
}

// Get returns the session bound to a container ID.
func (r *Registry) Get(id string) (*scroll.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Unbind removes the session for id, interrupting any running animation.
// It reports whether a session was removed.
func (r *Registry) Unbind(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Interrupt(CauseUnbound)
	log.Debug().Str("container", id).Msg("Scroll session removed")
	return true
}

// List returns the bound container IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of bound sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Active returns the number of sessions currently animating.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.Active() {
			n++
		}
	}
	return n
}

// Close interrupts and removes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*scroll.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Interrupt(CauseClosed)
	}
	if len(sessions) > 0 {
		log.Info().Int("count", len(sessions)).Msg("Scroll sessions closed")
	}
}
