// Package easing provides the cubic Bezier timing functions used to shape scroll animations.
// A Solver maps an elapsed-time ratio to a progress ratio by numerically inverting
// the curve's x polynomial, the same way CSS timing functions are evaluated.
package easing

import (
	"errors"
	"fmt"
	"math"
)

// Solver tuning constants.
const (
	// newtonIterations is the iteration budget before falling back to bisection.
	newtonIterations = 8
	// minSlope is the derivative magnitude below which Newton steps are unstable.
	minSlope = 1e-6
	// bisectionIterations bounds the fallback; float64 brackets collapse well before this.
	bisectionIterations = 64
)

// MaxControlY is the magnitude limit for p1y/p2y.
// Larger values lose precision once multiplied through the polynomial coefficients.
const MaxControlY = 1501199875790165 // floor(2^53-1 / 6)

// ErrInvalidEasing is returned for unknown keywords and malformed control points.
var ErrInvalidEasing = errors.New("invalid easing")

// ControlPoints holds the two inner control points of a cubic Bezier
// running from (0,0) to (1,1): [p1x, p1y, p2x, p2y].
type ControlPoints [4]float64

// Validate checks that the points describe a curve that is a function of x.
func (p ControlPoints) Validate() error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: control point %d is not finite", ErrInvalidEasing, i)
		}
	}
	if p[0] < 0 || p[0] > 1 || p[2] < 0 || p[2] > 1 {
		return fmt.Errorf("%w: x control points must be within [0, 1]", ErrInvalidEasing)
	}
	if math.Abs(p[1]) > MaxControlY || math.Abs(p[3]) > MaxControlY {
		return fmt.Errorf("%w: y control points exceed %d", ErrInvalidEasing, int64(MaxControlY))
	}
	return nil
}

// ParsePoints converts a loosely typed point list (as decoded from JSON or YAML) into ControlPoints.
func ParsePoints(points []float64) (ControlPoints, error) {
	var cp ControlPoints
	if len(points) != len(cp) {
		return cp, fmt.Errorf("%w: expected 4 control points, got %d", ErrInvalidEasing, len(points))
	}
	copy(cp[:], points)
	if err := cp.Validate(); err != nil {
		return ControlPoints{}, err
	}
	return cp, nil
}

// Solver evaluates a cubic Bezier timing function.
// It is immutable once constructed and safe for concurrent use.
type Solver struct {
	points ControlPoints

	// Polynomial coefficients: X(t) = ((ax*t + bx)*t + cx)*t, same for Y.
	ax, bx, cx float64
	ay, by, cy float64
}

// New builds a Solver for the given control points.
func New(points ControlPoints) (*Solver, error) {
	if err := points.Validate(); err != nil {
		return nil, err
	}

	s := &Solver{points: points}

	s.cx = 3 * points[0]
	s.bx = 3*(points[2]-points[0]) - s.cx
	s.ax = 1 - s.cx - s.bx

	s.cy = 3 * points[1]
	s.by = 3*(points[3]-points[1]) - s.cy
	s.ay = 1 - s.cy - s.by

	return s, nil
}

// NewKeyword builds a Solver for one of the named CSS timing functions.
func NewKeyword(name string) (*Solver, error) {
	points, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(points)
}

// Points returns the control points the solver was built from.
func (s *Solver) Points() ControlPoints {
	return s.points
}

// Matches reports whether the solver was built from exactly these control points.
func (s *Solver) Matches(points ControlPoints) bool {
	return s != nil && s.points == points
}

// Solve returns the progress ratio for the time ratio x.
// epsilon is the tolerance on x used while inverting the curve.
// The result is not clamped, so overshooting curves are reproduced faithfully.
func (s *Solver) Solve(x, epsilon float64) float64 {
	return s.sampleY(s.solveX(x, epsilon))
}

func (s *Solver) sampleX(t float64) float64 {
	return ((s.ax*t+s.bx)*t + s.cx) * t
}

func (s *Solver) sampleY(t float64) float64 {
	return ((s.ay*t+s.by)*t + s.cy) * t
}

func (s *Solver) sampleDerivativeX(t float64) float64 {
	return (3*s.ax*t+2*s.bx)*t + s.cx
}

// solveX finds t such that X(t) = x.
func (s *Solver) solveX(x, epsilon float64) float64 {
	// Newton-Raphson first, it converges in a few steps on most curves.
	t := x
	for i := 0; i < newtonIterations; i++ {
		x2 := s.sampleX(t) - x
		if math.Abs(x2) < epsilon {
			return t
		}
		d := s.sampleDerivativeX(t)
		if math.Abs(d) < minSlope {
			break
		}
		t -= x2 / d
	}

	// Bisection is slower but always makes progress on [0, 1].
	lo, hi := 0.0, 1.0
	t = x
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}

	for i := 0; i < bisectionIterations && lo < hi; i++ {
		x2 := s.sampleX(t)
		if math.Abs(x2-x) < epsilon {
			return t
		}
		if x > x2 {
			lo = t
		} else {
			hi = t
		}
		next := (hi-lo)*0.5 + lo
		if next == t {
			break
		}
		t = next
	}

	// Tolerance never met; the last estimate is still the best sample available.
	return t
}
