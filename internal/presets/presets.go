// Package presets provides named easing curves loaded from YAML.
package presets

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
)

//go:embed presets.yaml
var defaultPresetsFS embed.FS

// ErrUnknownPreset is returned when a name is neither a keyword nor a preset.
var ErrUnknownPreset = errors.New("unknown easing preset")

// file is the on-disk YAML layout.
type file struct {
	Presets map[string][]float64 `yaml:"presets"`
}

// Set is an immutable collection of named curves.
type Set struct {
	curves map[string]easing.ControlPoints
}

var (
	instance *Set
	once     sync.Once
	loadErr  error
)

// Embedded returns the compiled-in preset set.
func Embedded() *Set {
	once.Do(func() {
		instance, loadErr = load()
		if loadErr != nil {
			log.Error().Err(loadErr).Msg("Failed to load embedded presets, using keywords only")
			instance = keywordSet()
		}
	})
	return instance
}

func load() (*Set, error) {
	data, err := defaultPresetsFS.ReadFile("presets.yaml")
	if err != nil {
		return nil, err
	}
	s, err := parse(data)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("presets", s.Len()).Msg("Easing presets loaded")
	return s, nil
}

// keywordSet holds only the CSS keyword curves.
func keywordSet() *Set {
	s := &Set{curves: make(map[string]easing.ControlPoints)}
	for _, name := range easing.Keywords() {
		points, _ := easing.Lookup(name)
		s.curves[name] = points
	}
	return s
}

// parse decodes and validates a presets document.
// Keyword entries are ignored in favor of the fixed CSS values.
func parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("presets file defines no curves")
	}

	s := keywordSet()
	for name, raw := range f.Presets {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("preset with empty name")
		}
		points, err := easing.ParsePoints(raw)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		if easing.IsKeyword(name) {
			if points != s.curves[name] {
				log.Warn().Str("preset", name).Msg("Ignoring override of built-in easing keyword")
			}
			continue
		}
		s.curves[name] = points
	}
	return s, nil
}

// merge returns a set containing base overlaid with extra.
func merge(base, extra *Set) *Set {
	merged := &Set{curves: make(map[string]easing.ControlPoints, len(base.curves)+len(extra.curves))}
	for name, points := range base.curves {
		merged.curves[name] = points
	}
	for name, points := range extra.curves {
		if easing.IsKeyword(name) {
			continue
		}
		merged.curves[name] = points
	}
	return merged
}

// Resolve returns the control points for a keyword or preset name.
func (s *Set) Resolve(name string) (easing.ControlPoints, error) {
	if points, err := easing.Lookup(name); err == nil {
		return points, nil
	}
	points, ok := s.curves[name]
	if !ok {
		return easing.ControlPoints{}, fmt.Errorf("%w: %w: %q", easing.ErrInvalidEasing, ErrUnknownPreset, name)
	}
	return points, nil
}

// Names returns the sorted curve names.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.curves))
	for name := range s.curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of curves, keywords included.
func (s *Set) Len() int {
	return len(s.curves)
}
