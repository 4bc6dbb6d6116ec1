package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/security"
	"github.com/Rorqualx/smoothscroll-go/internal/session"
	"github.com/Rorqualx/smoothscroll-go/internal/types"
)

// waitSlack is added to the animation duration when a waiting request sets
// no maxTimeout.
const waitSlack = 5 * time.Second

func (h *Handler) handleScrollTo(ctx context.Context, req *types.Request) (*types.Response, error) {
	return h.startScroll(ctx, req, false)
}

func (h *Handler) handleScrollBy(ctx context.Context, req *types.Request) (*types.Response, error) {
	return h.startScroll(ctx, req, true)
}

// startScroll requests a scroll on the scheduler goroutine. A relative
// request is resolved against the offset at the moment it is applied.
func (h *Handler) startScroll(ctx context.Context, req *types.Request, relative bool) (*types.Response, error) {
	sess, err := h.session(req)
	if err != nil {
		return nil, err
	}
	sc, err := sess.Scroller(req.Selector)
	if err != nil {
		return nil, err
	}
	opts := h.scrollOptions(req)

	var (
		pending *scroll.Pending
		reqErr  error
		status  *types.ScrollStatus
	)
	err = h.runner.Do(ctx, func() {
		if relative {
			cur := sc.Status().Offset
			if req.DX != nil {
				opts.X = scroll.Float(cur.X + *req.DX)
			}
			if req.DY != nil {
				opts.Y = scroll.Float(cur.Y + *req.DY)
			}
		}
		pending, reqErr = sc.RequestScroll(opts)
		status = scrollStatus(req.Selector, sc)
	})
	if err != nil {
		return nil, err
	}
	if reqErr != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRequest, reqErr)
	}

	resp := &types.Response{
		Message: "Scroll started",
		Session: req.Session,
		Scroll:  status,
	}
	if res, done := pending.Result(); done {
		resp.Message = "Scroll finished"
		resp.Result = scrollResult(res)
		return resp, nil
	}
	if !req.Wait {
		return resp, nil
	}

	timeout := time.Duration(status.DurationMs*float64(time.Millisecond)) + waitSlack
	if req.MaxTimeout > 0 {
		timeout = time.Duration(req.MaxTimeout) * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := pending.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("waiting for scroll: %w", err)
	}
	resp.Message = "Scroll finished"
	resp.Result = scrollResult(res)

	var final *types.ScrollStatus
	if err := h.runner.Do(ctx, func() { final = scrollStatus(req.Selector, sc) }); err != nil {
		return nil, err
	}
	resp.Scroll = final
	return resp, nil
}

// handleScrollCancel interrupts the running animation, if any.
func (h *Handler) handleScrollCancel(ctx context.Context, req *types.Request) (*types.Response, error) {
	sess, err := h.session(req)
	if err != nil {
		return nil, err
	}
	resp := &types.Response{
		Message: "No scroll in progress",
		Session: req.Session,
	}
	sc, ok := sess.Lookup(req.Selector)
	if !ok {
		return resp, nil
	}

	var (
		canceled bool
		status   *types.ScrollStatus
	)
	err = h.runner.Do(ctx, func() {
		if sc.Active() {
			sc.Interrupt(scroll.CauseCanceled)
			canceled = true
		}
		status = scrollStatus(req.Selector, sc)
	})
	if err != nil {
		return nil, err
	}
	if canceled {
		resp.Message = "Scroll canceled"
	}
	resp.Scroll = status
	return resp, nil
}

// handleScrollStatus reports the container's offsets and animation state.
func (h *Handler) handleScrollStatus(ctx context.Context, req *types.Request) (*types.Response, error) {
	sess, err := h.session(req)
	if err != nil {
		return nil, err
	}
	sc, err := sess.Scroller(req.Selector)
	if err != nil {
		return nil, err
	}

	var status *types.ScrollStatus
	if err := h.runner.Do(ctx, func() { status = scrollStatus(req.Selector, sc) }); err != nil {
		return nil, err
	}
	return &types.Response{
		Message: "Scroll status retrieved",
		Session: req.Session,
		Scroll:  status,
	}, nil
}

// session resolves the target session of a scroll command.
func (h *Handler) session(req *types.Request) (*session.Session, error) {
	if req.Session == "" {
		return nil, types.ErrSessionRequired
	}
	if msg := security.ValidateSelector(req.Selector); msg != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidRequest, msg)
	}
	return h.sessions.Get(req.Session)
}

// scrollOptions converts request fields. Durations are clamped to the
// configured maximum.
func (h *Handler) scrollOptions(req *types.Request) scroll.Options {
	opts := scroll.Options{
		X:                      req.X,
		Y:                      req.Y,
		InterruptOnPointerDown: req.InterruptOnPointerDown,
	}
	if req.Duration != nil {
		d := time.Duration(*req.Duration * float64(time.Millisecond))
		if limit := h.config.MaxScrollDuration; limit > 0 && d > limit {
			d = limit
		}
		opts.Duration = &d
	}
	if req.Easing != nil {
		opts.Easing = scroll.Easing{Keyword: req.Easing.Name, Points: req.Easing.Points}
	}
	return opts
}

// scrollStatus must run on the scheduler goroutine.
func scrollStatus(selector string, sc *scroll.Session) *types.ScrollStatus {
	st := sc.Status()
	c := sc.Container()
	return &types.ScrollStatus{
		Selector:   selector,
		State:      st.State.String(),
		Offset:     types.Point{X: st.Offset.X, Y: st.Offset.Y},
		Target:     types.Point{X: st.Target.X, Y: st.Target.Y},
		Extent:     types.Point{X: c.ScrollExtent(scroll.AxisX), Y: c.ScrollExtent(scroll.AxisY)},
		ElapsedMs:  millis(st.Elapsed),
		DurationMs: millis(st.Duration),
	}
}

func scrollResult(res scroll.Result) *types.ScrollResult {
	out := &types.ScrollResult{
		StartPoint: types.Point{X: res.StartPoint.X, Y: res.StartPoint.Y},
		EndPoint:   types.Point{X: res.EndPoint.X, Y: res.EndPoint.Y},
		Distance:   res.Distance,
		DurationMs: millis(res.Duration),
		ElapsedMs:  millis(res.Elapsed),
	}
	if res.Interrupted() {
		cause := res.InterruptedBy
		out.InterruptedBy = &cause
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
