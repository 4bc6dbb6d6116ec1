package presets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
)

func TestEmbeddedPresets(t *testing.T) {
	s := Embedded()
	if s == nil {
		t.Fatal("Embedded() returned nil")
	}
	if s != Embedded() {
		t.Error("Expected Embedded() to return the same instance")
	}

	for _, name := range []string{"ease-in-back", "ease-out-back", "ease-in-out-back", "snap"} {
		if _, err := s.Resolve(name); err != nil {
			t.Errorf("Expected embedded preset %q, got %v", name, err)
		}
	}
	for _, name := range easing.Keywords() {
		want, _ := easing.Lookup(name)
		got, err := s.Resolve(name)
		if err != nil || got != want {
			t.Errorf("Resolve(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Embedded().Resolve("wobble")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
	if !errors.Is(err, easing.ErrInvalidEasing) {
		t.Errorf("Expected error to wrap ErrInvalidEasing, got %v", err)
	}
}

func TestParseRejectsInvalidCurves(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "presets: [unclosed"},
		{"empty", "presets: {}\n"},
		{"x out of range", "presets:\n  bad: [1.5, 0, 0.5, 1]\n"},
		{"wrong length", "presets:\n  bad: [0.1, 0.2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse([]byte(tt.content)); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestParseKeepsKeywordsFixed(t *testing.T) {
	s, err := parse([]byte("presets:\n  ease: [0.9, 0.9, 0.9, 0.9]\n  custom: [0.3, 0, 0.7, 1]\n"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	got, _ := s.Resolve(easing.Ease)
	want, _ := easing.Lookup(easing.Ease)
	if got != want {
		t.Errorf("Expected keyword ease to stay %v, got %v", want, got)
	}
	if got, _ := s.Resolve("custom"); got != (easing.ControlPoints{0.3, 0, 0.7, 1}) {
		t.Errorf("Unexpected custom points: %v", got)
	}
}

func writePresets(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write presets file: %v", err)
	}
}

func TestManagerEmbeddedOnly(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if m.Get() != Embedded() {
		t.Error("Expected embedded presets")
	}
	if err := m.Reload(); err == nil {
		t.Error("Expected Reload to fail without external path")
	}
}

func TestManagerExternalFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writePresets(t, path, "presets:\n  house: [0.2, 0, 0.2, 1]\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if got, err := m.Resolve("house"); err != nil || got != (easing.ControlPoints{0.2, 0, 0.2, 1}) {
		t.Errorf("Resolve(house) = %v, %v", got, err)
	}
	// Embedded presets fill in what the file does not define.
	if _, err := m.Resolve("snap"); err != nil {
		t.Errorf("Expected embedded snap preset, got %v", err)
	}

	writePresets(t, path, "presets:\n  house: [0.4, 0, 0.6, 1]\n")
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got, _ := m.Resolve("house"); got != (easing.ControlPoints{0.4, 0, 0.6, 1}) {
		t.Errorf("Expected reloaded house points, got %v", got)
	}

	stats := m.Stats()
	if stats.ReloadCount != 2 {
		t.Errorf("Expected 2 reloads, got %d", stats.ReloadCount)
	}
}

func TestManagerReloadFailureKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writePresets(t, path, "presets:\n  house: [0.2, 0, 0.2, 1]\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()
	before := m.Get()

	writePresets(t, path, "presets:\n  house: [5, 0, 0.2, 1]\n")
	if err := m.Reload(); err == nil {
		t.Fatal("Expected Reload to fail on invalid curve")
	}
	if m.Get() != before {
		t.Error("Expected previous presets to remain after failed reload")
	}
	if m.Stats().LastErrorStr == "" {
		t.Error("Expected last error in stats")
	}
}

func TestManagerOnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writePresets(t, path, "presets:\n  house: [0.2, 0, 0.2, 1]\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	var results []error
	m.OnReload(func(err error) { results = append(results, err) })

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	writePresets(t, path, "presets: [")
	if err := m.Reload(); err == nil {
		t.Fatal("Expected Reload to fail on broken YAML")
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 reload callbacks, got %d", len(results))
	}
	if results[0] != nil || results[1] == nil {
		t.Errorf("Expected success then failure, got %v", results)
	}
}

func TestManagerMissingFileFallsBack(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if m.Get() != Embedded() {
		t.Error("Expected embedded presets when the file is missing")
	}
}

func TestManagerHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writePresets(t, path, "presets:\n  house: [0.2, 0, 0.2, 1]\n")

	m, err := NewManager(path, true)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	writePresets(t, path, "presets:\n  house: [0.5, 0, 0.5, 1]\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := m.Resolve("house"); got == (easing.ControlPoints{0.5, 0, 0.5, 1}) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("Hot reload did not pick up the file change")
}

func TestManagerCloseIdempotent(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("First Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}
