package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/loop"
	"github.com/Rorqualx/smoothscroll-go/internal/registry"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// testConfig returns a configuration suitable for testing.
// Cleanup is driven by hand, so the background routine is disabled.
func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:  time.Minute,
		MaxSessions: 3,
	}
}

// inlineScheduler runs Do callbacks on the calling goroutine.
type inlineScheduler struct {
	*loop.Manual
}

func (inlineScheduler) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

type fakeContainer struct {
	id     string
	offset [2]float64
}

func (c *fakeContainer) ID() string { return c.id }
func (c *fakeContainer) Offset(axis scroll.Axis) float64 { return c.offset[axis] }
func (c *fakeContainer) SetOffset(axis scroll.Axis, v float64) { c.offset[axis] = v }
func (c *fakeContainer) ScrollExtent(scroll.Axis) float64 { return 1000 }

type fakePage struct {
	mu         sync.Mutex
	url        string
	lookups    int
	closed     bool
	containers map[string]*fakeContainer
}

func (p *fakePage) Container(selector string) (scroll.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	if selector == "#missing" {
		return nil, types.NewContainerNotFoundError(selector)
	}
	c, ok := p.containers[selector]
	if !ok {
		c = &fakeContainer{id: selector}
		p.containers[selector] = c
	}
	return c, nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeOpener struct {
	mu    sync.Mutex
	pages []*fakePage
	err   error
}

func (o *fakeOpener) Open(_ context.Context, url string) (Page, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	p := &fakePage{url: url, containers: make(map[string]*fakeContainer)}
	o.pages = append(o.pages, p)
	return p, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeOpener) {
	t.Helper()
	clock := loop.NewManual(time.Unix(0, 0))
	opener := &fakeOpener{}
	m := NewManager(testConfig(), opener, inlineScheduler{clock}, scroll.Config{})
	t.Cleanup(func() { m.Close() })
	return m, opener
}

func TestNewManager(t *testing.T) {
	m, _ := newTestManager(t)

	if m.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", m.Count())
	}
	if ids := m.List(); len(ids) != 0 {
		t.Errorf("Expected empty list, got %v", ids)
	}
}

func TestCreateAndGet(t *testing.T) {
	m, opener := newTestManager(t)

	sess, err := m.Create(context.Background(), "b", "https://example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.URL() != "https://example.com" {
		t.Errorf("Expected URL to be kept, got %q", sess.URL())
	}
	if _, err := m.Create(context.Background(), "a", "about:blank"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := m.Get("b")
	if err != nil || got != sess {
		t.Errorf("Expected Get to return created session, got %v (%v)", got, err)
	}
	if ids := m.List(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Expected sorted [a b], got %v", ids)
	}
	if len(opener.pages) != 2 {
		t.Errorf("Expected 2 pages opened, got %d", len(opener.pages))
	}
}

func TestCreateErrors(t *testing.T) {
	m, opener := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Create(ctx, "s1", "about:blank"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Create(ctx, "s1", "about:blank"); !errors.Is(err, types.ErrSessionAlreadyExists) {
		t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
	}

	m.Create(ctx, "s2", "about:blank")
	m.Create(ctx, "s3", "about:blank")
	if _, err := m.Create(ctx, "s4", "about:blank"); !errors.Is(err, types.ErrTooManySessions) {
		t.Errorf("Expected ErrTooManySessions, got %v", err)
	}

	m.Destroy("s3")
	opener.err = types.ErrBrowserPoolTimeout
	if _, err := m.Create(ctx, "s5", "about:blank"); !errors.Is(err, types.ErrBrowserPoolTimeout) {
		t.Errorf("Expected wrapped pool error, got %v", err)
	}
	if m.Count() != 2 {
		t.Errorf("Expected failed create to leave 2 sessions, got %d", m.Count())
	}
}

func TestGetUnknown(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.Get("nope"); !errors.Is(err, types.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Destroy("nope"); !errors.Is(err, types.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound from Destroy, got %v", err)
	}
}

func TestScrollerCachesContainer(t *testing.T) {
	m, opener := newTestManager(t)

	sess, _ := m.Create(context.Background(), "s", "about:blank")

	first, err := sess.Scroller("#list")
	if err != nil {
		t.Fatalf("Scroller failed: %v", err)
	}
	second, err := sess.Scroller("#list")
	if err != nil {
		t.Fatalf("Scroller failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same scroll session for the same selector")
	}
	if opener.pages[0].lookups != 1 {
		t.Errorf("Expected one container lookup, got %d", opener.pages[0].lookups)
	}

	if _, ok := sess.Lookup("#other"); ok {
		t.Error("Expected Lookup to not create sessions")
	}
	if _, err := sess.Scroller("#missing"); !errors.Is(err, types.ErrContainerNotFound) {
		t.Errorf("Expected ErrContainerNotFound, got %v", err)
	}
	if sel := sess.Selectors(); len(sel) != 1 || sel[0] != "#list" {
		t.Errorf("Expected [#list], got %v", sel)
	}
}

func TestDestroyInterruptsScrolls(t *testing.T) {
	m, opener := newTestManager(t)

	sess, _ := m.Create(context.Background(), "s", "about:blank")
	sc, _ := sess.Scroller("")
	pending, err := sc.RequestScroll(scroll.Options{Y: scroll.Float(500)})
	if err != nil {
		t.Fatalf("RequestScroll failed: %v", err)
	}

	if err := m.Destroy("s"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	res, ok := pending.Result()
	if !ok {
		t.Fatal("Expected pending scroll to resolve on destroy")
	}
	if res.InterruptedBy != registry.CauseClosed {
		t.Errorf("Expected interruption %q, got %q", registry.CauseClosed, res.InterruptedBy)
	}
	if !opener.pages[0].isClosed() {
		t.Error("Expected page to be closed")
	}
	if m.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", m.Count())
	}
}

func TestCleanupExpired(t *testing.T) {
	m, opener := newTestManager(t)
	ctx := context.Background()

	idle, _ := m.Create(ctx, "idle", "about:blank")
	busy, _ := m.Create(ctx, "busy", "about:blank")
	m.Create(ctx, "fresh", "about:blank")

	sc, _ := busy.Scroller("")
	if _, err := sc.RequestScroll(scroll.Options{Y: scroll.Float(500)}); err != nil {
		t.Fatalf("RequestScroll failed: %v", err)
	}

	old := time.Now().Add(-2 * time.Minute).UnixNano()
	idle.lastUsed.Store(old)
	busy.lastUsed.Store(old)

	if n := m.cleanupExpired(time.Now()); n != 1 {
		t.Errorf("Expected 1 expired session, got %d", n)
	}
	if _, err := m.Get("idle"); !errors.Is(err, types.ErrSessionNotFound) {
		t.Error("Expected idle session to be removed")
	}
	if _, err := m.Get("busy"); err != nil {
		t.Error("Expected animating session to be kept")
	}
	if !opener.pages[0].isClosed() || opener.pages[1].isClosed() {
		t.Error("Expected only the idle page to be closed")
	}
}

func TestCloseReleasesAll(t *testing.T) {
	clock := loop.NewManual(time.Unix(0, 0))
	opener := &fakeOpener{}
	m := NewManager(testConfig(), opener, inlineScheduler{clock}, scroll.Config{})

	m.Create(context.Background(), "a", "about:blank")
	m.Create(context.Background(), "b", "about:blank")

	if err := m.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	for i, p := range opener.pages {
		if !p.isClosed() {
			t.Errorf("Expected page %d to be closed", i)
		}
	}
	if _, err := m.Create(context.Background(), "c", "about:blank"); !errors.Is(err, types.ErrShuttingDown) {
		t.Errorf("Expected ErrShuttingDown after Close, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}
