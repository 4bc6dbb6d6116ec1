package easing

import (
	"fmt"
	"sort"
	"strings"
)

// Keyword names of the standard CSS timing functions.
const (
	Ease      = "ease"
	EaseIn    = "ease-in"
	EaseOut   = "ease-out"
	EaseInOut = "ease-in-out"
	Linear    = "linear"
)

// DefaultKeyword is used when a request does not name an easing.
const DefaultKeyword = Ease

var keywords = map[string]ControlPoints{
	Ease:      {0.25, 0.1, 0.25, 1},
	EaseIn:    {0.42, 0, 1, 1},
	EaseOut:   {0, 0, 0.58, 1},
	EaseInOut: {0.42, 0, 0.58, 1},
	Linear:    {0, 0, 1, 1},
}

// Lookup returns the control points of a keyword timing function.
// Keywords are case-sensitive, matching CSS.
func Lookup(name string) (ControlPoints, error) {
	points, ok := keywords[name]
	if !ok {
		return ControlPoints{}, fmt.Errorf("%w: unknown keyword %q (want one of %s)",
			ErrInvalidEasing, name, strings.Join(Keywords(), ", "))
	}
	return points, nil
}

// IsKeyword reports whether name is one of the standard timing functions.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Keywords returns the sorted keyword names.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
