// Package scroll implements eased, interruptible scroll animations over an
// abstract scroll container.
//
// A Session owns at most one animation at a time. All Session methods must be
// called from the goroutine that runs the Scheduler's ticks; the only value
// that may cross goroutines is the Pending handle returned by RequestScroll.
package scroll

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
)

// minDistance is the per-axis travel below which a request is a no-op.
const minDistance = 1.0

// State is the observable session state.
type State int

// Session states. Completed and interrupted animations return to StateIdle
// before their results are reported.
const (
	StateIdle State = iota
	StateAnimating
)

// String returns the state name.
func (s State) String() string {
	if s == StateAnimating {
		return "animating"
	}
	return "idle"
}

// Resolver maps an easing name to control points.
type Resolver func(name string) (easing.ControlPoints, error)

// Config holds the collaborators shared by sessions.
type Config struct {
	// Reporter receives frame samples and results. Optional.
	Reporter Reporter
	// Hooks run environment-specific side effects. Optional.
	Hooks Hooks
	// DefaultDuration applies when a request leaves Duration nil.
	// Zero means DefaultDuration.
	DefaultDuration time.Duration
	// DefaultEasing names the easing used when a request sets none.
	DefaultEasing string
	// Resolve looks up named easings. Defaults to the CSS keywords.
	Resolve Resolver
}

// Status is a point-in-time view of a session.
type Status struct {
	State    State
	Offset   Point
	Target   Point
	Elapsed  time.Duration
	Duration time.Duration
}

type animation struct {
	start    Point
	target   Point
	distance Point
	duration time.Duration
	epsilon  float64
	solver   *easing.Solver

	started   bool
	startTime time.Time
	elapsed   time.Duration

	token         TickToken
	scheduled     bool
	removePointer func()
	pending       *Pending
}

// Session animates one container.
type Session struct {
	container Container
	scheduler Scheduler
	reporter  Reporter
	hooks     Hooks

	defaultDuration time.Duration
	defaultEasing   string
	resolve         Resolver

	solver *easing.Solver
	anim   *animation
}

// NewSession binds a session to container. Ticks are requested from scheduler.
func NewSession(container Container, scheduler Scheduler, cfg Config) *Session {
	s := &Session{
		container:       container,
		scheduler:       scheduler,
		reporter:        cfg.Reporter,
		hooks:           cfg.Hooks,
		defaultDuration: cfg.DefaultDuration,
		defaultEasing:   cfg.DefaultEasing,
		resolve:         cfg.Resolve,
	}
	if s.reporter == nil {
		s.reporter = nopReporter{}
	}
	if s.defaultDuration <= 0 {
		s.defaultDuration = DefaultDuration
	}
	if s.defaultEasing == "" {
		s.defaultEasing = easing.DefaultKeyword
	}
	if s.resolve == nil {
		s.resolve = easing.Lookup
	}
	return s
}

// Container returns the bound container.
func (s *Session) Container() Container {
	return s.container
}

// State returns the current state.
func (s *Session) State() State {
	if s.anim != nil {
		return StateAnimating
	}
	return StateIdle
}

// Active reports whether an animation is running.
func (s *Session) Active() bool {
	return s.anim != nil
}

// Status returns the current offsets and, while animating, the target and timing.
func (s *Session) Status() Status {
	st := Status{State: s.State(), Offset: s.offset()}
	if a := s.anim; a != nil {
		st.Target = a.target
		st.Elapsed = a.elapsed
		st.Duration = a.duration
	} else {
		st.Target = st.Offset
	}
	return st
}

// RequestScroll starts a scroll toward the requested target,
// interrupting any animation already running.
// Invalid options are rejected before the session is touched.
func (s *Session) RequestScroll(opts Options) (*Pending, error) {
	points, err := s.resolveEasing(opts.Easing)
	if err != nil {
		return nil, err
	}

	duration := s.defaultDuration
	if opts.Duration != nil {
		duration = *opts.Duration
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: %v is negative", ErrInvalidDuration, duration)
	}

	for _, v := range []*float64{opts.X, opts.Y} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, fmt.Errorf("%w: coordinate %v is not finite", ErrInvalidTarget, *v)
		}
	}

	solver := s.solver
	if !solver.Matches(points) {
		if solver, err = easing.New(points); err != nil {
			return nil, err
		}
	}

	// A finalize hook or reporter may start another scroll while the
	// previous one ends; that one is superseded too.
	for s.anim != nil {
		s.Interrupt(CauseNewRequest)
	}
	s.solver = solver

	start := s.offset()
	target := Point{
		X: s.clampTarget(AxisX, opts.X, start.X),
		Y: s.clampTarget(AxisY, opts.Y, start.Y),
	}

	a := &animation{
		start:    start,
		target:   target,
		distance: Point{X: target.X - start.X, Y: target.Y - start.Y},
		duration: duration,
		solver:   solver,
		pending:  newPending(),
	}
	s.anim = a

	if math.Abs(a.distance.X) < minDistance && math.Abs(a.distance.Y) < minDistance {
		log.Debug().
			Str("container", s.container.ID()).
			Msg("Scroll target already reached")
		s.finalize(a, "")
		return a.pending, nil
	}

	if duration == 0 {
		s.write(a, target)
		s.finalize(a, "")
		return a.pending, nil
	}

	a.epsilon = 1 / (200 * float64(duration) / float64(time.Millisecond))

	if opts.InterruptOnPointerDown == nil || *opts.InterruptOnPointerDown {
		if pn, ok := s.container.(PointerNotifier); ok {
			a.removePointer = pn.OnPointerDown(func() {
				if s.anim == a {
					s.Interrupt(CausePointerDown)
				}
			})
		}
	}

	log.Debug().
		Str("container", s.container.ID()).
		Float64("from_x", start.X).
		Float64("from_y", start.Y).
		Float64("to_x", target.X).
		Float64("to_y", target.Y).
		Dur("duration", duration).
		Msg("Scroll started")

	// A pointer listener may fire synchronously on registration.
	if s.anim == a {
		s.schedule(a)
	}
	return a.pending, nil
}

// Interrupt ends the running animation with cause. It is a no-op when idle.
func (s *Session) Interrupt(cause string) {
	a := s.anim
	if a == nil {
		return
	}
	if cause == "" {
		cause = CauseCanceled
	}
	if a.scheduled {
		s.scheduler.CancelTick(a.token)
		a.scheduled = false
	}
	log.Debug().
		Str("container", s.container.ID()).
		Str("cause", cause).
		Dur("elapsed", a.elapsed).
		Msg("Scroll interrupted")
	s.finalize(a, cause)
}

func (s *Session) resolveEasing(e Easing) (easing.ControlPoints, error) {
	if e.Points != nil {
		return easing.ParsePoints(e.Points)
	}
	name := e.Keyword
	if name == "" {
		name = s.defaultEasing
	}
	return s.resolve(name)
}

func (s *Session) clampTarget(axis Axis, requested *float64, current float64) float64 {
	v := current
	if requested != nil {
		v = *requested
	}
	extent := s.container.ScrollExtent(axis)
	if extent < 0 {
		extent = 0
	}
	return math.Max(0, math.Min(v, extent))
}

func (s *Session) offset() Point {
	return Point{
		X: s.container.Offset(AxisX),
		Y: s.container.Offset(AxisY),
	}
}

// write sets the offset on every axis the animation actually moves.
func (s *Session) write(a *animation, p Point) {
	if a.distance.X != 0 {
		s.container.SetOffset(AxisX, p.X)
	}
	if a.distance.Y != 0 {
		s.container.SetOffset(AxisY, p.Y)
	}
}

func (s *Session) schedule(a *animation) {
	a.token = s.scheduler.ScheduleTick(func(now time.Time) {
		s.tick(a, now)
	})
	a.scheduled = true
}

func (s *Session) tick(a *animation, now time.Time) {
	if s.anim != a {
		return
	}
	a.scheduled = false

	// A panicking container or reporter must not leave the session animating
	// with nothing scheduled. The panic is passed on to the scheduler.
	defer func() {
		if r := recover(); r != nil {
			if s.anim == a {
				if a.scheduled {
					s.scheduler.CancelTick(a.token)
					a.scheduled = false
				}
				log.Error().
					Str("container", s.container.ID()).
					Str("panic", fmt.Sprint(r)).
					Msg("Scroll tick panicked")
				s.finalize(a, CauseTickPanic)
			}
			panic(r)
		}
	}()

	first := !a.started
	if first {
		a.started = true
		a.startTime = now
		if s.hooks.OnStart != nil {
			s.hooks.OnStart(s)
			if s.anim != a {
				return
			}
		}
	}

	elapsed := now.Sub(a.startTime)
	if elapsed < a.elapsed {
		elapsed = a.elapsed
	}
	if elapsed > a.duration {
		elapsed = a.duration
	}
	a.elapsed = elapsed

	ratio := math.Min(float64(elapsed)/float64(a.duration), 1)

	progress := 1.0
	p := a.target
	if ratio < 1 {
		progress = a.solver.Solve(ratio, a.epsilon)
		p = Point{
			X: a.start.X + progress*a.distance.X,
			Y: a.start.Y + progress*a.distance.Y,
		}
	}
	s.write(a, p)

	s.reporter.FrameSample(Frame{
		ContainerID: s.container.ID(),
		Offset:      p,
		Ratio:       ratio,
		Progress:    progress,
		Elapsed:     elapsed,
		Duration:    a.duration,
		Start:       first,
		Session:     s,
	})
	if s.anim != a {
		return
	}

	if ratio < 1 {
		s.schedule(a)
		return
	}
	s.finalize(a, "")
}

// finalize is the single exit path of an animation.
// State is cleared before anything is reported so callbacks observe an idle session.
func (s *Session) finalize(a *animation, cause string) {
	if s.anim == a {
		s.anim = nil
	}
	if a.removePointer != nil {
		a.removePointer()
		a.removePointer = nil
	}

	end := s.offset()
	result := Result{
		InterruptedBy: cause,
		StartPoint:    a.start,
		EndPoint:      end,
		Distance:      a.start.DistanceTo(end),
		Duration:      a.duration,
		Elapsed:       a.elapsed,
		Container:     s.container,
		Session:       s,
	}

	if s.hooks.OnFinalize != nil {
		s.hooks.OnFinalize(s, result)
	}
	s.reporter.SessionEnded(result)
	a.pending.resolve(result)
}

type nopReporter struct{}

func (nopReporter) FrameSample(Frame)   {}
func (nopReporter) SessionEnded(Result) {}
