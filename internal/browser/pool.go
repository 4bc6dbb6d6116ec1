// Package browser provides the headless browser pool and the page-backed
// scroll containers driven by the animation loop.
// Browsers are launched once at startup and reused across page sessions.
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// maxBrowserAge is how long a browser is reused before it is replaced.
const maxBrowserAge = 30 * time.Minute

// Pool manages a fixed set of reusable browser instances.
//
// Lock ordering: never hold mu while performing slow browser I/O.
type Pool struct {
	mu        sync.Mutex
	browsers  []*browserEntry
	available chan *rod.Browser
	config    *config.Config
	closed    atomic.Bool

	stopCh chan struct{}
	wg     sync.WaitGroup

	availableCount atomic.Int32
	stats          PoolStats
}

type browserEntry struct {
	browser   *rod.Browser
	createdAt time.Time
	useCount  atomic.Int64
}

// PoolStats provides statistics about pool usage.
type PoolStats struct {
	Acquired atomic.Int64
	Released atomic.Int64
	Recycled atomic.Int64
	Errors   atomic.Int64
}

// NewPool launches cfg.BrowserPoolSize browsers and returns once all are ready.
// If any browser fails to launch, the ones already started are closed.
func NewPool(cfg *config.Config) (*Pool, error) {
	log.Info().
		Int("pool_size", cfg.BrowserPoolSize).
		Bool("headless", cfg.Headless).
		Str("browser_path", cfg.BrowserPath).
		Msg("Initializing browser pool")

	pool := &Pool{
		config:    cfg,
		available: make(chan *rod.Browser, cfg.BrowserPoolSize),
		browsers:  make([]*browserEntry, 0, cfg.BrowserPoolSize),
		stopCh:    make(chan struct{}),
	}

	for i := 0; i < cfg.BrowserPoolSize; i++ {
		browser, err := pool.spawnBrowser(context.Background())
		if err != nil {
			log.Error().Err(err).Int("browser_index", i).Msg("Failed to spawn browser during pool initialization")
			if closeErr := pool.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close pool during cleanup")
			}
			return nil, fmt.Errorf("failed to spawn browser %d: %w", i, err)
		}
		pool.browsers = append(pool.browsers, &browserEntry{browser: browser, createdAt: time.Now()})
		pool.available <- browser
		log.Debug().Int("browser_index", i).Msg("Browser spawned and added to pool")
	}
	pool.availableCount.Store(int32(cfg.BrowserPoolSize))

	pool.wg.Add(1)
	go func() {
		defer pool.wg.Done()
		pool.recycleRoutine()
	}()

	log.Info().Int("pool_size", cfg.BrowserPoolSize).Msg("Browser pool initialized successfully")
	return pool, nil
}

// createLauncher builds a launcher for a rendering-capable Chrome.
// Scroll animations need real layout, so GPU compositing stays on.
func (p *Pool) createLauncher() *launcher.Launcher {
	l := launcher.New()

	if p.config.BrowserPath != "" {
		l = l.Bin(p.config.BrowserPath)
	}

	if p.config.Headless {
		l = l.Set("headless", "new")
	} else {
		// Rod enables headless by default.
		l = l.Headless(false)
	}

	l = l.Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage")

	l = l.Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("window-size", "1280,800")

	// Background tabs must keep painting so rAF-paced writes land.
	l = l.Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding")

	l = l.Set("disable-background-networking").
		Set("disable-default-apps").
		Set("disable-extensions").
		Set("disable-sync").
		Set("mute-audio")

	return l
}

// spawnBrowser launches and connects a new browser.
// Launchers can only launch once, so each call builds a fresh one.
func (p *Pool) spawnBrowser(ctx context.Context) (*rod.Browser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	log.Debug().Msg("Spawning new browser instance")

	url, err := p.createLauncher().Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Debug().Str("url", url).Msg("Browser spawned successfully")
	return browser, nil
}

// Acquire obtains a browser from the pool.
// It blocks until a browser is available, ctx is done, or the pool timeout passes.
// The caller must Release the browser when done.
func (p *Pool) Acquire(ctx context.Context) (*rod.Browser, error) {
	if p.closed.Load() {
		return nil, types.ErrBrowserPoolClosed
	}

	const maxRetries = 5

	timeout := time.NewTimer(p.config.BrowserPoolTimeout)
	defer timeout.Stop()

	for retry := 0; retry < maxRetries; retry++ {
		select {
		case browser, ok := <-p.available:
			if !ok || p.closed.Load() {
				if browser != nil {
					_ = browser.Close()
				}
				return nil, types.ErrBrowserPoolClosed
			}
			p.stats.Acquired.Add(1)

			if !p.isHealthy(browser) {
				log.Warn().Int("retry", retry).Msg("Acquired unhealthy browser, recycling")
				p.stats.Errors.Add(1)
				p.availableCount.Add(-1)
				go p.recycleBrowser(browser)
				continue
			}
			p.availableCount.Add(-1)

			p.mu.Lock()
			for _, entry := range p.browsers {
				if entry.browser == browser {
					entry.useCount.Add(1)
					break
				}
			}
			p.mu.Unlock()

			log.Debug().Int64("total_acquired", p.stats.Acquired.Load()).Msg("Browser acquired from pool")
			return browser, nil

		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeout.C:
			p.stats.Errors.Add(1)
			return nil, types.NewPoolAcquireError("timed out", types.ErrBrowserPoolTimeout)
		}
	}

	p.stats.Errors.Add(1)
	return nil, fmt.Errorf("%w: all browsers unhealthy after %d retries", types.ErrBrowserUnhealthy, maxRetries)
}

// Release closes the browser's pages and returns it to the pool.
// It is safe to call with a nil browser.
func (p *Pool) Release(browser *rod.Browser) {
	if browser == nil {
		return
	}
	if p.closed.Load() {
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing browser during release (pool closed)")
		}
		return
	}
	p.stats.Released.Add(1)

	cleanupFailed := false
	pages, err := browser.Pages()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get pages for cleanup, browser may be unhealthy")
		cleanupFailed = true
	} else {
		for _, page := range pages {
			if err := page.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close page during cleanup")
				cleanupFailed = true
			}
		}
	}
	if cleanupFailed {
		go p.recycleBrowser(browser)
		return
	}

	p.addBrowserToPool(browser)
}

// isHealthy checks that the browser can still open a page.
func (p *Pool) isHealthy(browser *rod.Browser) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		log.Debug().Err(err).Msg("Browser health check failed: cannot create page")
		return false
	}
	if err := page.Close(); err != nil {
		log.Debug().Err(err).Msg("Browser health check failed: cannot close page")
		return false
	}
	return true
}

// recycleBrowser replaces a browser with a freshly launched one.
// It must never be called while holding p.mu.
func (p *Pool) recycleBrowser(old *rod.Browser) {
	if p.closed.Load() {
		return
	}
	p.stats.Recycled.Add(1)
	log.Info().Int64("total_recycled", p.stats.Recycled.Load()).Msg("Recycling browser")

	if err := old.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing browser")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	fresh, err := p.spawnBrowser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to spawn replacement browser")
		p.removeBrowserEntry(old)
		return
	}

	p.mu.Lock()
	replaced := false
	for i, entry := range p.browsers {
		if entry.browser == old {
			p.browsers[i] = &browserEntry{browser: fresh, createdAt: time.Now()}
			replaced = true
			break
		}
	}
	if !replaced {
		p.browsers = append(p.browsers, &browserEntry{browser: fresh, createdAt: time.Now()})
	}
	p.mu.Unlock()

	p.addBrowserToPool(fresh)
}

// addBrowserToPool makes a browser available, or closes it if the pool is closed or full.
func (p *Pool) addBrowserToPool(browser *rod.Browser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing browser (pool was closed)")
		}
		return
	}

	select {
	case p.available <- browser:
		p.availableCount.Add(1)
		log.Debug().Int64("total_released", p.stats.Released.Load()).Msg("Browser returned to pool")
	default:
		log.Warn().Msg("Pool is full, closing excess browser")
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing excess browser")
		}
	}
}

func (p *Pool) removeBrowserEntry(old *rod.Browser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, entry := range p.browsers {
		if entry.browser == old {
			last := len(p.browsers) - 1
			p.browsers[i] = p.browsers[last]
			p.browsers = p.browsers[:last]
			return
		}
	}
}

// recycleRoutine replaces idle browsers that have been running for too long.
// Browsers held by page sessions are left alone until they are released.
func (p *Pool) recycleRoutine() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.recycleStale()
		}
	}
}

func (p *Pool) recycleStale() {
	p.mu.Lock()
	stale := make(map[*rod.Browser]bool)
	for _, entry := range p.browsers {
		if time.Since(entry.createdAt) > maxBrowserAge {
			stale[entry.browser] = true
		}
	}
	p.mu.Unlock()
	if len(stale) == 0 {
		return
	}

	// Only idle browsers sit in the channel; take the stale ones out.
	var keep []*rod.Browser
	var recycle []*rod.Browser
	for n := len(p.available); n > 0; n-- {
		select {
		case b := <-p.available:
			if stale[b] {
				recycle = append(recycle, b)
				p.availableCount.Add(-1)
			} else {
				keep = append(keep, b)
			}
		default:
		}
	}
	for _, b := range keep {
		p.available <- b
	}
	for _, b := range recycle {
		log.Info().Msg("Recycling stale browser")
		p.recycleBrowser(b)
	}
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return p.config.BrowserPoolSize
}

// Available returns the number of idle browsers.
func (p *Pool) Available() int {
	if p.closed.Load() {
		return 0
	}
	return int(p.availableCount.Load())
}

// PoolStatsSnapshot holds a point-in-time snapshot of pool statistics.
type PoolStatsSnapshot struct {
	Acquired int64
	Released int64
	Recycled int64
	Errors   int64
}

// Stats returns a snapshot of the current pool statistics.
func (p *Pool) Stats() PoolStatsSnapshot {
	return PoolStatsSnapshot{
		Acquired: p.stats.Acquired.Load(),
		Released: p.stats.Released.Load(),
		Recycled: p.stats.Recycled.Load(),
		Errors:   p.stats.Errors.Load(),
	}
}

// Close shuts down the pool and closes every browser.
// Safe to call multiple times.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return nil
	}
	close(p.available)
	browsers := p.browsers
	p.browsers = nil
	p.mu.Unlock()

	log.Info().Msg("Closing browser pool")
	close(p.stopCh)
	p.wg.Wait()

	for range p.available {
		// Drain; every browser is also tracked in browsers.
	}

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, entry := range browsers {
		browser := entry.browser
		eg.Go(func() error {
			if err := browser.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing browser during pool shutdown")
				return err
			}
			return nil
		})
	}
	closeErr := eg.Wait()

	log.Info().
		Int64("total_acquired", p.stats.Acquired.Load()).
		Int64("total_released", p.stats.Released.Load()).
		Int64("total_recycled", p.stats.Recycled.Load()).
		Int64("total_errors", p.stats.Errors.Load()).
		Msg("Browser pool closed")

	return closeErr
}
