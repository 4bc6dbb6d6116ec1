package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// Viewport used for every page.
const (
	viewportWidth  = 1280
	viewportHeight = 800
)

// Poster runs fn on the scroll scheduler's goroutine.
type Poster func(fn func()) error

// Opener opens pages on browsers taken from a pool.
type Opener struct {
	pool   *Pool
	config *config.Config
	post   Poster
}

// NewOpener returns an Opener whose containers deliver pointer callbacks through post.
func NewOpener(pool *Pool, cfg *config.Config, post Poster) *Opener {
	return &Opener{pool: pool, config: cfg, post: post}
}

// Open acquires a browser, creates a page and navigates it to url.
// The browser is released again if any step fails.
func (o *Opener) Open(ctx context.Context, url string) (*Target, error) {
	brow, err := o.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := o.newPage(brow)
	if err != nil {
		o.pool.Release(brow)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := SetViewport(page, viewportWidth, viewportHeight); err != nil {
		log.Warn().Err(err).Msg("Failed to set viewport")
	}

	if err := page.Context(ctx).Navigate(url); err != nil {
		_ = page.Close()
		o.pool.Release(brow)
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Page did not finish loading, continuing")
	}

	log.Debug().Str("url", url).Bool("stealth", o.config.StealthEnabled).Msg("Page opened")

	return &Target{
		browser:    brow,
		page:       page,
		pool:       o.pool,
		post:       o.post,
		containers: make(map[string]*PageContainer),
	}, nil
}

func (o *Opener) newPage(brow *rod.Browser) (*rod.Page, error) {
	if o.config.StealthEnabled {
		return stealth.Page(brow)
	}
	return brow.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// SetViewport sets the page viewport size.
func SetViewport(page *rod.Page, width, height int) error {
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
}

// Target is an open page holding a pooled browser until it is closed.
type Target struct {
	browser *rod.Browser
	page    *rod.Page
	pool    *Pool
	post    Poster

	mu         sync.Mutex
	containers map[string]*PageContainer
	closed     bool
}

// Page returns the underlying rod page.
func (t *Target) Page() *rod.Page {
	return t.page
}

// URL returns the page's current location.
func (t *Target) URL() string {
	info, err := t.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Container returns the scroll container for selector, creating it on first use.
// An empty selector addresses the document's scrolling element.
func (t *Target) Container(selector string) (scroll.Container, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("page is closed")
	}
	if c, ok := t.containers[selector]; ok {
		return c, nil
	}
	c, err := NewPageContainer(t.page, selector, t.post)
	if err != nil {
		return nil, err
	}
	t.containers[selector] = c
	return c, nil
}

// Close closes the page and returns the browser to the pool.
func (t *Target) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	containers := t.containers
	t.containers = nil
	t.mu.Unlock()

	for _, c := range containers {
		c.detach()
	}

	err := t.page.Close()
	if err != nil {
		log.Debug().Err(err).Msg("Error closing page")
	}
	t.pool.Release(t.browser)
	return err
}
