// Package tui is a terminal front end for the scroll engine: a text list is
// the scroll container and bubbletea ticks drive the frames.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
	"github.com/Rorqualx/smoothscroll-go/internal/loop"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// chromeRows is the number of rows used by the status bar and help line.
const chromeRows = 2

// wheelRows is how far one mouse wheel notch scrolls.
const wheelRows = 3

// Config configures a Model.
type Config struct {
	Rows      []string
	RowHeight float64
	Duration  time.Duration
	// Easings are selectable with the number keys, in order.
	Easings []string
	// Resolve looks up easing names. Defaults to the CSS keywords.
	Resolve  scroll.Resolver
	Interval time.Duration
}

// DefaultEasings are the standard keywords bound to keys 1-5.
var DefaultEasings = []string{
	easing.Ease,
	easing.Linear,
	easing.EaseIn,
	easing.EaseOut,
	easing.EaseInOut,
}

type frameMsg time.Time

// recorder keeps the last frame and result for the status bar.
type recorder struct {
	frame  scroll.Frame
	result *scroll.Result
	frames int
}

func (r *recorder) FrameSample(f scroll.Frame) {
	r.frame = f
	r.frames++
}

func (r *recorder) SessionEnded(res scroll.Result) {
	r.result = &res
}

// Model is the root bubbletea model.
type Model struct {
	list     *List
	clock    *loop.Manual
	session  *scroll.Session
	recorder *recorder

	keys     KeyMap
	easings  []string
	easing   int
	duration time.Duration
	interval time.Duration
	ticking  bool

	width  int
	height int
	err    error
}

// New creates the model and its scroll session.
func New(cfg Config) Model {
	easings := cfg.Easings
	if len(easings) == 0 {
		easings = DefaultEasings
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = loop.DefaultInterval
	}
	duration := cfg.Duration
	if duration <= 0 {
		duration = scroll.DefaultDuration
	}

	list := NewList("list", cfg.Rows, cfg.RowHeight)
	clock := loop.NewManual(time.Now())
	rec := &recorder{}
	session := scroll.NewSession(list, clock, scroll.Config{
		Reporter:        rec,
		DefaultDuration: duration,
		DefaultEasing:   easings[0],
		Resolve:         cfg.Resolve,
	})

	return Model{
		list:     list,
		clock:    clock,
		session:  session,
		recorder: rec,
		keys:     DefaultKeyMap(),
		easings:  easings,
		duration: duration,
		interval: interval,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetViewRows(msg.Height - chromeRows)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case frameMsg:
		m.clock.Frame(time.Time(msg))
		if m.clock.Pending() > 0 {
			return m, m.tick()
		}
		m.ticking = false
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row := m.list.RowHeight()
	half := float64(m.list.ViewRows()/2) * row
	if half < row {
		half = row
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		return m.scrollBy(row)
	case key.Matches(msg, m.keys.Up):
		return m.scrollBy(-row)
	case key.Matches(msg, m.keys.HalfDown):
		return m.scrollBy(half)
	case key.Matches(msg, m.keys.HalfUp):
		return m.scrollBy(-half)
	case key.Matches(msg, m.keys.Top):
		return m.scrollTo(0)
	case key.Matches(msg, m.keys.Bottom):
		return m.scrollTo(m.list.ScrollExtent(scroll.AxisY))
	case key.Matches(msg, m.keys.Cancel):
		m.session.Interrupt(scroll.CauseCanceled)
		return m, nil
	case key.Matches(msg, m.keys.Easing):
		if i := int(msg.String()[0] - '1'); i < len(m.easings) {
			m.easing = i
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Button == tea.MouseButtonWheelDown:
		return m.scrollBy(wheelRows * m.list.RowHeight())
	case msg.Button == tea.MouseButtonWheelUp:
		return m.scrollBy(-wheelRows * m.list.RowHeight())
	case msg.Action == tea.MouseActionPress:
		m.list.PointerDown()
	}
	return m, nil
}

// scrollBy moves relative to the running animation's target, so repeated
// keys accumulate instead of restarting from the current frame.
func (m Model) scrollBy(delta float64) (tea.Model, tea.Cmd) {
	return m.scrollTo(m.session.Status().Target.Y + delta)
}

func (m Model) scrollTo(y float64) (tea.Model, tea.Cmd) {
	_, err := m.session.RequestScroll(scroll.Options{
		Y:        scroll.Float(y),
		Duration: scroll.Dur(m.duration),
		Easing:   scroll.Keyword(m.easings[m.easing]),
	})
	m.err = err
	if err != nil || m.ticking || m.clock.Pending() == 0 {
		return m, nil
	}
	m.ticking = true
	return m, m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Offset returns the list's current scroll offset.
func (m Model) Offset() float64 {
	return m.list.Offset(scroll.AxisY)
}

// Easing returns the selected easing name.
func (m Model) Easing() string {
	return m.easings[m.easing]
}

// LastResult returns the most recent finished scroll, if any.
func (m Model) LastResult() (scroll.Result, bool) {
	if m.recorder.result == nil {
		return scroll.Result{}, false
	}
	return *m.recorder.result, true
}

// View implements tea.Model.
func (m Model) View() string {
	first, rows := m.list.Visible()
	width := len(fmt.Sprint(m.list.Len()))

	var b strings.Builder
	for i, row := range rows {
		b.WriteString(gutterStyle.Render(fmt.Sprintf("%*d ", width, first+i+1)))
		b.WriteString(row)
		b.WriteByte('\n')
	}
	for i := len(rows); i < m.list.ViewRows(); i++ {
		b.WriteString(gutterStyle.Render("~"))
		b.WriteByte('\n')
	}

	b.WriteString(m.statusBar())
	b.WriteByte('\n')
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) statusBar() string {
	st := m.session.Status()
	sep := sepStyle.Render(" | ")

	var state string
	if st.State == scroll.StateAnimating {
		progress := 0.0
		if st.Duration > 0 {
			progress = float64(st.Elapsed) / float64(st.Duration) * 100
		}
		state = lipgloss.NewStyle().Foreground(colorAnimating).
			Render(fmt.Sprintf("● animating %3.0f%%", progress))
	} else {
		state = lipgloss.NewStyle().Foreground(colorComplete).Render("○ idle")
	}

	parts := []string{
		state,
		easingStyle.Render(m.Easing()),
		fmt.Sprintf("%.0f/%.0f", st.Offset.Y, m.list.ScrollExtent(scroll.AxisY)),
		fmt.Sprintf("%d frames", m.recorder.frames),
	}

	if res, ok := m.LastResult(); ok {
		if res.Interrupted() {
			parts = append(parts, lipgloss.NewStyle().Foreground(colorWarning).
				Render("interrupted: "+res.InterruptedBy))
		} else {
			parts = append(parts, fmt.Sprintf("last %.0fpx in %s", res.Distance, res.Elapsed.Round(time.Millisecond)))
		}
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	}

	style := barStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(strings.Join(parts, sep))
}

func (m Model) helpLine() string {
	bindings := m.keys.help()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}
