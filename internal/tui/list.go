package tui

import (
	"math"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// DefaultRowHeight is the scroll distance of one row.
const DefaultRowHeight = 16.0

// List is a vertical scroll.Container over fixed text rows. Offsets are in
// row-height units so eased positions between rows stay observable.
// It is not safe for concurrent use; bubbletea drives it from one goroutine.
type List struct {
	id        string
	rows      []string
	rowHeight float64
	viewRows  int
	offset    float64

	listeners map[int]func()
	nextID    int
}

// NewList creates a list container. A non-positive rowHeight means DefaultRowHeight.
func NewList(id string, rows []string, rowHeight float64) *List {
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	return &List{
		id:        id,
		rows:      rows,
		rowHeight: rowHeight,
		viewRows:  1,
		listeners: make(map[int]func()),
	}
}

// ID implements scroll.Container.
func (l *List) ID() string {
	return l.id
}

// Offset implements scroll.Container.
func (l *List) Offset(axis scroll.Axis) float64 {
	if axis != scroll.AxisY {
		return 0
	}
	return l.offset
}

// SetOffset implements scroll.Container. Values are clamped to the scroll range.
func (l *List) SetOffset(axis scroll.Axis, v float64) {
	if axis != scroll.AxisY {
		return
	}
	l.offset = math.Max(0, math.Min(v, l.ScrollExtent(axis)))
}

// ScrollExtent implements scroll.Container.
func (l *List) ScrollExtent(axis scroll.Axis) float64 {
	if axis != scroll.AxisY {
		return 0
	}
	return math.Max(0, float64(len(l.rows)-l.viewRows)*l.rowHeight)
}

// OnPointerDown implements scroll.PointerNotifier.
func (l *List) OnPointerDown(fn func()) func() {
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() { delete(l.listeners, id) }
}

// PointerDown delivers a pointer press to the registered listeners.
func (l *List) PointerDown() {
	fns := make([]func(), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of registered pointer listeners.
func (l *List) Listeners() int {
	return len(l.listeners)
}

// SetViewRows sets how many rows are visible and re-clamps the offset.
func (l *List) SetViewRows(n int) {
	if n < 1 {
		n = 1
	}
	l.viewRows = n
	l.SetOffset(scroll.AxisY, l.offset)
}

// ViewRows returns the number of visible rows.
func (l *List) ViewRows() int {
	return l.viewRows
}

// RowHeight returns the scroll distance of one row.
func (l *List) RowHeight() float64 {
	return l.rowHeight
}

// Len returns the number of rows.
func (l *List) Len() int {
	return len(l.rows)
}

// Visible returns the index of the first visible row and the visible rows.
func (l *List) Visible() (int, []string) {
	first := int(math.Round(l.offset / l.rowHeight))
	if first > len(l.rows) {
		first = len(l.rows)
	}
	end := first + l.viewRows
	if end > len(l.rows) {
		end = len(l.rows)
	}
	return first, l.rows[first:end]
}
