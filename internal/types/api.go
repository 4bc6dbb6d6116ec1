package types

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Request validation limits.
const (
	MaxCmdLength       = 64
	MaxURLLength       = 8192
	MaxSessionIDLength = 64
	MaxSelectorLength  = 1024
	MaxDurationMs      = 600000 // 10 minutes
	MaxTimeoutMs       = 600000
	MaxCoordinate      = 1e9
)

// Request represents an incoming API request.
type Request struct {
	Cmd     string `json:"cmd"`
	Session string `json:"session,omitempty"`

	// sessions.create
	URL string `json:"url,omitempty"`

	// scroll.*
	Selector string   `json:"selector,omitempty"` // empty = the document's scrolling element
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	DX       *float64 `json:"dx,omitempty"`
	DY       *float64 `json:"dy,omitempty"`
	// Duration is in milliseconds.
	Duration               *float64 `json:"duration,omitempty"`
	Easing                 *Easing  `json:"easing,omitempty"`
	InterruptOnPointerDown *bool    `json:"interruptOnPointerDown,omitempty"`
	Wait                   bool     `json:"wait,omitempty"`
	MaxTimeout             int      `json:"maxTimeout,omitempty"` // ms to wait when wait is set
}

// Easing is a timing function given either as a name or as four control points.
type Easing struct {
	Name   string
	Points []float64
}

// UnmarshalJSON accepts "ease-out" or [0, 0, 0.58, 1].
func (e *Easing) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Name, e.Points = name, nil
		return nil
	}
	var points []float64
	if err := json.Unmarshal(data, &points); err != nil {
		return fmt.Errorf("easing must be a name or an array of 4 numbers")
	}
	e.Name, e.Points = "", points
	return nil
}

// MarshalJSON writes the name or the control points.
func (e Easing) MarshalJSON() ([]byte, error) {
	if e.Points != nil {
		return json.Marshal(e.Points)
	}
	return json.Marshal(e.Name)
}

// Validate validates the request and returns an error if invalid.
func (r *Request) Validate() error {
	if r.Cmd == "" {
		return fmt.Errorf("cmd is required")
	}
	if len(r.Cmd) > MaxCmdLength {
		return fmt.Errorf("cmd exceeds maximum length of %d", MaxCmdLength)
	}

	switch r.Cmd {
	case CmdSessionsCreate, CmdSessionsList, CmdSessionsDestroy,
		CmdScrollTo, CmdScrollBy, CmdScrollCancel, CmdScrollStatus:
	default:
		return fmt.Errorf("Unknown command: %q", r.Cmd)
	}

	if r.URL != "" {
		if len(r.URL) > MaxURLLength {
			return fmt.Errorf("url exceeds maximum length of %d", MaxURLLength)
		}
		u, err := url.Parse(r.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" && scheme != "about" && scheme != "data" {
			return fmt.Errorf("url scheme must be http, https, about or data, got: %s", scheme)
		}
	}

	if len(r.Session) > MaxSessionIDLength {
		return fmt.Errorf("session exceeds maximum length of %d", MaxSessionIDLength)
	}
	if len(r.Selector) > MaxSelectorLength {
		return fmt.Errorf("selector exceeds maximum length of %d", MaxSelectorLength)
	}

	coords := []struct {
		name  string
		value *float64
	}{{"x", r.X}, {"y", r.Y}, {"dx", r.DX}, {"dy", r.DY}}
	for _, c := range coords {
		if c.value == nil {
			continue
		}
		if math.IsNaN(*c.value) || math.IsInf(*c.value, 0) || math.Abs(*c.value) > MaxCoordinate {
			return fmt.Errorf("%s must be a finite number within ±%g", c.name, float64(MaxCoordinate))
		}
	}
	if r.Cmd == CmdScrollTo && (r.DX != nil || r.DY != nil) {
		return fmt.Errorf("dx/dy are only valid for %s", CmdScrollBy)
	}
	if r.Cmd == CmdScrollBy && (r.X != nil || r.Y != nil) {
		return fmt.Errorf("x/y are only valid for %s", CmdScrollTo)
	}

	if r.Duration != nil {
		if *r.Duration < 0 {
			return fmt.Errorf("duration cannot be negative")
		}
		if *r.Duration > MaxDurationMs {
			return fmt.Errorf("duration exceeds maximum of %d ms", MaxDurationMs)
		}
	}

	if r.MaxTimeout < 0 {
		return fmt.Errorf("maxTimeout cannot be negative")
	}
	if r.MaxTimeout > MaxTimeoutMs {
		return fmt.Errorf("maxTimeout exceeds maximum of %d ms", MaxTimeoutMs)
	}

	return nil
}

// IsScroll reports whether the command targets a scroll container.
func (r *Request) IsScroll() bool {
	return strings.HasPrefix(r.Cmd, "scroll.")
}

// Response represents an API response.
type Response struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	StartTime int64         `json:"startTimestamp"`
	EndTime   int64         `json:"endTimestamp"`
	Version   string        `json:"version"`
	Session   string        `json:"session,omitempty"`
	Sessions  []string      `json:"sessions,omitempty"`
	Scroll    *ScrollStatus `json:"scroll,omitempty"`
	Result    *ScrollResult `json:"result,omitempty"`
}

// Point is a pair of scroll offsets in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScrollStatus describes a container's current scroll state.
type ScrollStatus struct {
	Selector   string  `json:"selector"`
	State      string  `json:"state"`
	Offset     Point   `json:"offset"`
	Target     Point   `json:"target"`
	Extent     Point   `json:"extent"`
	ElapsedMs  float64 `json:"elapsedMs"`
	DurationMs float64 `json:"durationMs"`
}

// ScrollResult describes how a scroll ended.
type ScrollResult struct {
	// InterruptedBy is null for scrolls that ran to completion.
	InterruptedBy *string `json:"interruptedBy"`
	StartPoint    Point   `json:"startPoint"`
	EndPoint      Point   `json:"endPoint"`
	Distance      float64 `json:"distance"`
	DurationMs    float64 `json:"durationMs"`
	ElapsedMs     float64 `json:"elapsedMs"`
}

// Commands supported by the API.
const (
	CmdSessionsCreate  = "sessions.create"
	CmdSessionsList    = "sessions.list"
	CmdSessionsDestroy = "sessions.destroy"
	CmdScrollTo        = "scroll.to"
	CmdScrollBy        = "scroll.by"
	CmdScrollCancel    = "scroll.cancel"
	CmdScrollStatus    = "scroll.status"
)

// Status values for API responses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
