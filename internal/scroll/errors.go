package scroll

import "errors"

// Request validation errors. They are returned before any session state changes.
var (
	ErrInvalidDuration = errors.New("invalid scroll duration")
	ErrInvalidTarget   = errors.New("invalid scroll target")
)
