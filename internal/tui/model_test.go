package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

func testRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("line %03d", i)
	}
	return rows
}

// newTestModel returns a model showing 10 of 100 rows, so the extent is 1440.
func newTestModel(t *testing.T, cfg Config) Model {
	t.Helper()
	if cfg.Rows == nil {
		cfg.Rows = testRows(100)
	}
	if cfg.Duration == 0 {
		cfg.Duration = 100 * time.Millisecond
	}
	m, _ := update(New(cfg), tea.WindowSizeMsg{Width: 80, Height: 12})
	return m
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runFrames delivers frames every 16ms from start until no tick is requested.
func runFrames(t *testing.T, m Model, start time.Time) Model {
	t.Helper()
	now := start
	for i := 0; i < 100; i++ {
		var cmd tea.Cmd
		m, cmd = update(m, frameMsg(now))
		if cmd == nil {
			return m
		}
		now = now.Add(16 * time.Millisecond)
	}
	t.Fatal("Animation did not finish")
	return m
}

func TestScrollToBottom(t *testing.T) {
	m := newTestModel(t, Config{})

	m, cmd := update(m, keyMsg("G"))
	if cmd == nil {
		t.Fatal("Expected a tick command after starting a scroll")
	}

	start := time.Now()
	m, cmd = update(m, frameMsg(start))
	if cmd == nil {
		t.Error("Expected another tick while animating")
	}
	m, _ = update(m, frameMsg(start.Add(50*time.Millisecond)))
	if off := m.Offset(); off <= 0 || off >= 1440 {
		t.Errorf("Expected offset strictly between 0 and 1440 mid-animation, got %v", off)
	}

	m, cmd = update(m, frameMsg(start.Add(100*time.Millisecond)))
	if cmd != nil {
		t.Error("Expected ticking to stop after the last frame")
	}
	if m.Offset() != 1440 {
		t.Errorf("Expected offset 1440, got %v", m.Offset())
	}

	res, ok := m.LastResult()
	if !ok || res.Interrupted() {
		t.Fatalf("Expected a completed result, got %+v", res)
	}
	if !strings.Contains(m.View(), "line 099") {
		t.Error("Expected last row to be visible at the bottom")
	}
}

func TestLineKeysAccumulate(t *testing.T) {
	m := newTestModel(t, Config{})

	m, _ = update(m, keyMsg("j"))
	m, _ = update(m, keyMsg("j"))
	m, _ = update(m, keyMsg("j"))
	m = runFrames(t, m, time.Now())

	if m.Offset() != 48 {
		t.Errorf("Expected offset 48 after three lines, got %v", m.Offset())
	}

	m, _ = update(m, keyMsg("k"))
	m = runFrames(t, m, time.Now())
	if m.Offset() != 32 {
		t.Errorf("Expected offset 32, got %v", m.Offset())
	}
}

func TestHalfPageAndTop(t *testing.T) {
	m := newTestModel(t, Config{})

	m, _ = update(m, keyMsg("d"))
	m = runFrames(t, m, time.Now())
	if m.Offset() != 80 {
		t.Errorf("Expected half page offset 80, got %v", m.Offset())
	}

	m, _ = update(m, keyMsg("g"))
	m = runFrames(t, m, time.Now())
	if m.Offset() != 0 {
		t.Errorf("Expected offset 0 at top, got %v", m.Offset())
	}
}

func TestMousePressInterrupts(t *testing.T) {
	m := newTestModel(t, Config{})

	m, _ = update(m, keyMsg("G"))
	start := time.Now()
	m, _ = update(m, frameMsg(start))
	m, _ = update(m, frameMsg(start.Add(30*time.Millisecond)))
	if m.list.Listeners() != 1 {
		t.Fatalf("Expected a pointer listener while animating, got %d", m.list.Listeners())
	}

	m, _ = update(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	res, ok := m.LastResult()
	if !ok {
		t.Fatal("Expected a result after the press")
	}
	if res.InterruptedBy != scroll.CausePointerDown {
		t.Errorf("Expected pointer interruption, got %q", res.InterruptedBy)
	}
	if m.session.Active() {
		t.Error("Expected session to be idle")
	}
	if m.list.Listeners() != 0 {
		t.Errorf("Expected pointer listener removed, got %d", m.list.Listeners())
	}
	if !strings.Contains(m.View(), "interrupted") {
		t.Error("Expected status bar to show the interruption")
	}

	before := m.Offset()
	m, _ = update(m, frameMsg(start.Add(60*time.Millisecond)))
	if m.Offset() != before {
		t.Errorf("Expected no movement after interruption, got %v -> %v", before, m.Offset())
	}
}

func TestMouseWheelScrolls(t *testing.T) {
	m := newTestModel(t, Config{})

	m, cmd := update(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if cmd == nil {
		t.Fatal("Expected wheel to start a scroll")
	}
	m = runFrames(t, m, time.Now())
	if m.Offset() != 48 {
		t.Errorf("Expected offset 48 after one notch, got %v", m.Offset())
	}
}

func TestCancelKey(t *testing.T) {
	m := newTestModel(t, Config{})

	m, _ = update(m, keyMsg("G"))
	m, _ = update(m, frameMsg(time.Now()))
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})

	res, ok := m.LastResult()
	if !ok || res.InterruptedBy != scroll.CauseCanceled {
		t.Errorf("Expected canceled result, got %+v", res)
	}
}

func TestEasingSelection(t *testing.T) {
	m := newTestModel(t, Config{})

	if m.Easing() != "ease" {
		t.Errorf("Expected default easing 'ease', got %q", m.Easing())
	}
	m, _ = update(m, keyMsg("4"))
	if m.Easing() != "ease-out" {
		t.Errorf("Expected 'ease-out', got %q", m.Easing())
	}
	m, _ = update(m, keyMsg("9"))
	if m.Easing() != "ease-out" {
		t.Errorf("Expected out of range key to be ignored, got %q", m.Easing())
	}
	if !strings.Contains(m.View(), "ease-out") {
		t.Error("Expected status bar to show the easing")
	}
}

func TestUnknownEasingShowsError(t *testing.T) {
	m := newTestModel(t, Config{Easings: []string{"wobble"}})

	m, cmd := update(m, keyMsg("j"))
	if cmd != nil {
		t.Error("Expected no tick for a rejected request")
	}
	if m.err == nil {
		t.Fatal("Expected an error for an unknown easing")
	}
	if !strings.Contains(m.View(), "wobble") {
		t.Error("Expected the error in the status bar")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, Config{})

	_, cmd := update(m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestListContainer(t *testing.T) {
	l := NewList("l", testRows(20), 0)
	l.SetViewRows(5)

	if l.RowHeight() != DefaultRowHeight {
		t.Errorf("Expected default row height, got %v", l.RowHeight())
	}
	if got := l.ScrollExtent(scroll.AxisY); got != 15*DefaultRowHeight {
		t.Errorf("Expected extent %v, got %v", 15*DefaultRowHeight, got)
	}
	if l.ScrollExtent(scroll.AxisX) != 0 {
		t.Error("Expected no horizontal extent")
	}

	l.SetOffset(scroll.AxisY, 1e6)
	if l.Offset(scroll.AxisY) != 15*DefaultRowHeight {
		t.Errorf("Expected offset clamped to extent, got %v", l.Offset(scroll.AxisY))
	}
	first, rows := l.Visible()
	if first != 15 || len(rows) != 5 || rows[4] != "line 019" {
		t.Errorf("Unexpected visible window: %d %v", first, rows)
	}

	l.SetViewRows(30)
	if l.Offset(scroll.AxisY) != 0 {
		t.Errorf("Expected offset re-clamped to 0, got %v", l.Offset(scroll.AxisY))
	}

	calls := 0
	var remove func()
	remove = l.OnPointerDown(func() {
		calls++
		remove()
	})
	l.PointerDown()
	l.PointerDown()
	if calls != 1 {
		t.Errorf("Expected listener to run once, got %d", calls)
	}
}
