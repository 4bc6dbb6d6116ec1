// Package session manages page sessions: open pages whose scroll containers
// can be animated across many API requests.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/registry"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/security"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// shutdownTimeout bounds how long closing a session waits for the
// scheduler to interrupt its animations.
const shutdownTimeout = 5 * time.Second

// Page is an open document that owns its scroll containers.
type Page interface {
	// Container returns the container for selector; "" is the document.
	Container(selector string) (scroll.Container, error)
	URL() string
	Close() error
}

// Opener opens pages.
type Opener interface {
	Open(ctx context.Context, url string) (Page, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) (Page, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}

// Scheduler is the frame scheduler shared by every scroll session.
// Do runs fn on the scheduler goroutine and waits for it.
type Scheduler interface {
	scroll.Scheduler
	Do(ctx context.Context, fn func()) error
}

// Session is one open page.
type Session struct {
	ID        string
	CreatedAt time.Time
	lastUsed  atomic.Int64

	page    Page
	scrolls *registry.Registry
	mu      sync.Mutex // serializes container creation
}

// Scroller returns the scroll session for selector, resolving the
// container on first use.
func (s *Session) Scroller(selector string) (*scroll.Session, error) {
	s.Touch()
	if sc, ok := s.scrolls.Get(selector); ok {
		return sc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scrolls.Get(selector); ok {
		return sc, nil
	}
	c, err := s.page.Container(selector)
	if err != nil {
		return nil, err
	}
	return s.scrolls.For(c), nil
}

// Lookup returns the scroll session for selector without creating one.
func (s *Session) Lookup(selector string) (*scroll.Session, bool) {
	s.Touch()
	return s.scrolls.Get(selector)
}

// Selectors returns the selectors with a bound scroll session.
func (s *Session) Selectors() []string {
	return s.scrolls.List()
}

// Active returns the number of containers currently animating.
// Call it from the scheduler goroutine for an exact answer.
func (s *Session) Active() int {
	return s.scrolls.Active()
}

// URL returns the page's current location.
func (s *Session) URL() string {
	return s.page.URL()
}

// Touch updates the last used timestamp.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsedTime returns the last used time.
func (s *Session) LastUsedTime() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Manager handles session lifecycle and cleanup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	creating map[string]struct{}

	config    *config.Config
	opener    Opener
	scheduler Scheduler
	scroll    scroll.Config

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager creates a session manager and starts its cleanup routine.
// Every session's scroll containers share scheduler and scrollCfg.
func NewManager(cfg *config.Config, opener Opener, scheduler Scheduler, scrollCfg scroll.Config) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		creating:  make(map[string]struct{}),
		config:    cfg,
		opener:    opener,
		scheduler: scheduler,
		scroll:    scrollCfg,
		stopCh:    make(chan struct{}),
	}

	if cfg.SessionCleanupInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.cleanupRoutine()
		}()
	}

	log.Info().
		Dur("ttl", cfg.SessionTTL).
		Dur("cleanup_interval", cfg.SessionCleanupInterval).
		Int("max_sessions", cfg.MaxSessions).
		Msg("Session manager initialized")

	return m
}

// Create opens url in a new session called id.
// The ID is reserved while the page opens so concurrent creates cannot race.
func (m *Manager) Create(ctx context.Context, id, url string) (*Session, error) {
	m.mu.Lock()
	if m.sessions == nil {
		m.mu.Unlock()
		return nil, types.ErrShuttingDown
	}
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, types.ErrSessionAlreadyExists
	}
	if _, pending := m.creating[id]; pending {
		m.mu.Unlock()
		return nil, types.ErrSessionAlreadyExists
	}
	if m.config.MaxSessions > 0 && len(m.sessions)+len(m.creating) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, types.ErrTooManySessions
	}
	m.creating[id] = struct{}{}
	m.mu.Unlock()

	page, err := m.opener.Open(ctx, url)

	m.mu.Lock()
	delete(m.creating, id)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if m.sessions == nil {
		m.mu.Unlock()
		if closeErr := page.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("session_id", id).Msg("Error closing page opened during shutdown")
		}
		return nil, types.ErrShuttingDown
	}

	now := time.Now()
	sess := &Session{
		ID:        id,
		CreatedAt: now,
		page:      page,
		scrolls:   registry.New(m.scheduler, m.scroll),
	}
	sess.lastUsed.Store(now.UnixNano())
	m.sessions[id] = sess
	total := len(m.sessions)
	m.mu.Unlock()

	log.Info().
		Str("session_id", id).
		Str("url", security.RedactURL(url)).
		Int("total_sessions", total).
		Msg("Session created")

	return sess, nil
}

// Get retrieves a session by ID and refreshes its TTL.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, types.ErrSessionNotFound
	}
	sess.Touch()
	return sess, nil
}

// Destroy interrupts the session's animations and closes its page.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	sess, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return types.ErrSessionNotFound
	}

	m.release(sess)
	log.Info().
		Str("session_id", id).
		Dur("lifetime", time.Since(sess.CreatedAt)).
		Msg("Session destroyed")
	return nil
}

// release interrupts scrolls on the scheduler goroutine, then closes the page.
func (m *Manager) release(sess *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := m.scheduler.Do(ctx, sess.scrolls.Close); err != nil {
		log.Debug().Err(err).Str("session_id", sess.ID).Msg("Scheduler unavailable while closing scroll sessions")
	}
	if err := sess.page.Close(); err != nil {
		log.Debug().Err(err).Str("session_id", sess.ID).Msg("Error closing session page")
	}
}

// List returns all session IDs in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(m.config.SessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// cleanupExpired closes sessions idle for longer than the TTL.
// Sessions with a running animation are kept alive.
func (m *Manager) cleanupExpired(now time.Time) int {
	if m.config.SessionTTL <= 0 {
		return 0
	}

	m.mu.RLock()
	var idle []*Session
	for _, sess := range m.sessions {
		if now.Sub(sess.LastUsedTime()) > m.config.SessionTTL {
			idle = append(idle, sess)
		}
	}
	m.mu.RUnlock()

	if len(idle) == 0 {
		return 0
	}

	// Animation state belongs to the scheduler goroutine.
	busy := make(map[*Session]bool)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err := m.scheduler.Do(ctx, func() {
		for _, sess := range idle {
			busy[sess] = sess.Active() > 0
		}
	})
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("Skipping session cleanup, scheduler unavailable")
		return 0
	}

	m.mu.Lock()
	var expired []*Session
	for _, sess := range idle {
		if busy[sess] || m.sessions[sess.ID] != sess {
			continue
		}
		if now.Sub(sess.LastUsedTime()) <= m.config.SessionTTL {
			continue
		}
		expired = append(expired, sess)
		delete(m.sessions, sess.ID)
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	m.releaseAll(expired, "Session expired and cleaned up")

	log.Debug().
		Int("expired_count", len(expired)).
		Int("remaining", remaining).
		Msg("Session cleanup completed")
	return len(expired)
}

func (m *Manager) releaseAll(sessions []*Session, msg string) {
	eg := new(errgroup.Group)
	eg.SetLimit(4)

	for _, sess := range sessions {
		sess := sess
		eg.Go(func() error {
			m.release(sess)
			log.Info().
				Str("session_id", sess.ID).
				Dur("lifetime", time.Since(sess.CreatedAt)).
				Msg(msg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Msg("Session cleanup encountered errors")
	}
}

// Close stops the cleanup routine and closes every session.
// Safe to call multiple times.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = nil
	m.mu.Unlock()

	if len(sessions) > 0 {
		m.releaseAll(sessions, "Session closed during shutdown")
	}

	log.Info().Msg("Session manager closed")
	return nil
}
