package browser

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"
	"github.com/ysmood/gson"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// evalTimeout bounds each offset read or write.
const evalTimeout = 2 * time.Second

var bindingSeq atomic.Uint64

// Every script resolves its element the same way: an empty selector means
// the document's scrolling element.
const resolveElement = `const el = sel ? document.querySelector(sel) : (document.scrollingElement || document.documentElement);`

const (
	jsExists = `(sel) => { ` + resolveElement + ` return el !== null; }`

	jsOffset = `(sel, axis) => { ` + resolveElement + `
		if (!el) return null;
		return axis === 'x' ? el.scrollLeft : el.scrollTop;
	}`

	jsSetOffset = `(sel, axis, v) => { ` + resolveElement + `
		if (!el) return false;
		if (axis === 'x') el.scrollLeft = v; else el.scrollTop = v;
		return true;
	}`

	jsExtent = `(sel, axis) => { ` + resolveElement + `
		if (!el) return null;
		return axis === 'x'
			? Math.max(0, el.scrollWidth - el.clientWidth)
			: Math.max(0, el.scrollHeight - el.clientHeight);
	}`

	// The document scrolling element does not receive pointer events, so
	// document listeners go on window.
	jsListenPointer = `(sel, binding) => {
		const target = sel ? document.querySelector(sel) : window;
		if (!target) return false;
		target.addEventListener('pointerdown', () => { window[binding](sel); }, { capture: true, passive: true });
		return true;
	}`

	jsHaltMomentum = `(sel) => { ` + resolveElement + `
		if (!el) return;
		const previous = el.style.overflow;
		el.style.overflow = 'hidden';
		requestAnimationFrame(() => { el.style.overflow = previous; });
	}`
)

// PageContainer is a scroll.Container backed by an element in a rod page.
//
// Offset, SetOffset and ScrollExtent are called by scroll sessions and so
// only from the scheduler goroutine. Failed reads return the last value
// seen for that axis.
type PageContainer struct {
	page     *rod.Page
	selector string
	post     Poster

	last   [2]float64
	extent [2]float64

	stopBinding func() error
	listeners   map[uint64]func()
	nextID      uint64
}

// NewPageContainer resolves selector on page and installs a pointerdown
// listener whose callbacks are delivered through post.
func NewPageContainer(page *rod.Page, selector string, post Poster) (*PageContainer, error) {
	c := &PageContainer{
		page:      page,
		selector:  selector,
		post:      post,
		listeners: make(map[uint64]func()),
	}

	res, err := c.eval(jsExists, selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrInvalidRequest, selector, err)
	}
	if !res.Bool() {
		return nil, types.NewContainerNotFoundError(selector)
	}

	if err := c.attach(); err != nil {
		log.Warn().Err(err).Str("selector", selector).Msg("Pointer interruption unavailable for container")
	}
	return c, nil
}

// attach exposes a page binding and registers the DOM listener that calls it.
func (c *PageContainer) attach() error {
	name := fmt.Sprintf("__smoothscrollPointer%d", bindingSeq.Add(1))

	stop, err := c.page.Expose(name, func(gson.JSON) (interface{}, error) {
		if err := c.post(c.pointerDown); err != nil {
			log.Debug().Err(err).Msg("Dropped pointerdown, scheduler closed")
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to expose pointer binding: %w", err)
	}

	res, err := c.eval(jsListenPointer, c.selector, name)
	if err != nil || !res.Bool() {
		_ = stop()
		if err == nil {
			err = types.NewContainerNotFoundError(c.selector)
		}
		return fmt.Errorf("failed to install pointer listener: %w", err)
	}
	c.stopBinding = stop
	return nil
}

func (c *PageContainer) detach() {
	if c.stopBinding == nil {
		return
	}
	if err := c.stopBinding(); err != nil {
		log.Debug().Err(err).Msg("Error removing pointer binding")
	}
	c.stopBinding = nil
}

// pointerDown runs on the scheduler goroutine.
func (c *PageContainer) pointerDown() {
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

// ID returns the selector; the document container has the empty ID.
func (c *PageContainer) ID() string {
	return c.selector
}

// Selector returns the CSS selector this container was created for.
func (c *PageContainer) Selector() string {
	return c.selector
}

// Offset returns the current scroll offset on axis.
func (c *PageContainer) Offset(axis scroll.Axis) float64 {
	res, err := c.eval(jsOffset, c.selector, axis.String())
	if err != nil || res.Nil() {
		log.Debug().Err(err).Str("selector", c.selector).Msg("Failed to read scroll offset")
		return c.last[axis]
	}
	c.last[axis] = res.Num()
	return c.last[axis]
}

// SetOffset writes the scroll offset on axis.
func (c *PageContainer) SetOffset(axis scroll.Axis, v float64) {
	if _, err := c.eval(jsSetOffset, c.selector, axis.String(), v); err != nil {
		log.Debug().Err(err).Str("selector", c.selector).Msg("Failed to write scroll offset")
		return
	}
	c.last[axis] = v
}

// ScrollExtent returns the maximum scroll offset on axis.
func (c *PageContainer) ScrollExtent(axis scroll.Axis) float64 {
	res, err := c.eval(jsExtent, c.selector, axis.String())
	if err != nil || res.Nil() {
		log.Debug().Err(err).Str("selector", c.selector).Msg("Failed to read scroll extent")
		return c.extent[axis]
	}
	c.extent[axis] = res.Num()
	return c.extent[axis]
}

// OnPointerDown registers fn for pointerdown events on the element.
func (c *PageContainer) OnPointerDown(fn func()) (remove func()) {
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

// HaltMomentum stops any native momentum scroll on the element by
// toggling overflow for one animation frame.
func (c *PageContainer) HaltMomentum() {
	if _, err := c.eval(jsHaltMomentum, c.selector); err != nil {
		log.Debug().Err(err).Str("selector", c.selector).Msg("Failed to halt momentum")
	}
}

func (c *PageContainer) eval(js string, args ...interface{}) (gson.JSON, error) {
	page := c.page.Timeout(evalTimeout)
	defer page.CancelTimeout()

	res, err := page.Eval(js, args...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}
