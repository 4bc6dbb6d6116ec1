package scroll

import (
	"math"
	"time"
)

// Axis selects a scroll direction.
type Axis int

// Scroll axes.
const (
	AxisX Axis = iota
	AxisY
)

// String returns the axis name.
func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Point is a pair of scroll offsets.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Get returns the coordinate for the given axis.
func (p Point) Get(axis Axis) float64 {
	if axis == AxisX {
		return p.X
	}
	return p.Y
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Container is a scrollable element.
// Implementations report offsets in the same units the target coordinates use.
type Container interface {
	// ID returns a stable identity used by registries.
	ID() string
	// Offset returns the current scroll offset on an axis.
	Offset(axis Axis) float64
	// SetOffset writes the scroll offset on an axis.
	SetOffset(axis Axis, value float64)
	// ScrollExtent returns content size minus visible size, floored at 0.
	ScrollExtent(axis Axis) float64
}

// PointerNotifier is implemented by containers that can report pointer-down input.
// The returned function removes the listener.
// fn must be invoked on the scheduler's goroutine.
type PointerNotifier interface {
	OnPointerDown(fn func()) (remove func())
}

// TickToken identifies a scheduled tick so it can be canceled.
type TickToken uint64

// Scheduler drives animations, typically once per display frame.
type Scheduler interface {
	// ScheduleTick arranges for fn to run once on the next frame.
	ScheduleTick(fn func(now time.Time)) TickToken
	// CancelTick drops a scheduled tick. Unknown or fired tokens are ignored.
	CancelTick(token TickToken)
	// Now returns the current monotonic time.
	Now() time.Time
}

// Frame is reported once per processed tick. Ratio is elapsed time over
// duration; Progress is the eased value, which overshooting curves push
// outside [0, 1].
type Frame struct {
	ContainerID string        `json:"containerId"`
	Offset      Point         `json:"offset"`
	Ratio       float64       `json:"ratio"`
	Progress    float64       `json:"progress"`
	Elapsed     time.Duration `json:"elapsed"`
	Duration    time.Duration `json:"duration"`

	// Start is true for the first tick of an animation.
	Start bool `json:"start"`

	Session *Session `json:"-"`
}

// Reporter receives fire-and-forget notifications from sessions.
type Reporter interface {
	FrameSample(frame Frame)
	SessionEnded(result Result)
}

// Hooks are optional environment-specific side effects.
// OnStart runs on the first tick of an animation, OnFinalize after every animation ends.
type Hooks struct {
	OnStart    func(s *Session)
	OnFinalize func(s *Session, result Result)
}

// Interruption causes.
const (
	CauseNewRequest  = "new scroll request"
	CausePointerDown = "Pointer down on scroll container"
	CauseCanceled    = "scroll canceled"
	CauseTickPanic   = "scroll tick panicked"
)

// Result describes how a requested scroll ended.
type Result struct {
	// InterruptedBy is empty when the animation ran to completion.
	InterruptedBy string
	StartPoint    Point
	EndPoint      Point
	// Distance is the Euclidean distance actually traveled.
	Distance float64
	Duration time.Duration
	Elapsed  time.Duration

	Container Container
	Session   *Session
}

// Interrupted reports whether the scroll ended early.
func (r Result) Interrupted() bool {
	return r.InterruptedBy != ""
}

// Easing names a timing function either by keyword or by explicit control points.
// The zero value means the default keyword.
type Easing struct {
	Keyword string
	Points  []float64
}

// Keyword returns an Easing naming a timing function.
func Keyword(name string) Easing {
	return Easing{Keyword: name}
}

// CubicBezier returns an Easing with explicit control points.
func CubicBezier(p1x, p1y, p2x, p2y float64) Easing {
	return Easing{Points: []float64{p1x, p1y, p2x, p2y}}
}

// DefaultDuration applies when Options.Duration is nil.
const DefaultDuration = 600 * time.Millisecond

// Options describe a scroll request. Nil fields take their defaults.
type Options struct {
	X, Y                   *float64
	Duration               *time.Duration
	Easing                 Easing
	InterruptOnPointerDown *bool
}

// Float returns a pointer to v, for building Options.
func Float(v float64) *float64 {
	return &v
}

// Dur returns a pointer to d, for building Options.
func Dur(d time.Duration) *time.Duration {
	return &d
}

// Bool returns a pointer to b, for building Options.
func Bool(b bool) *bool {
	return &b
}
