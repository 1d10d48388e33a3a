package stack

import "errors"

var (
	// ErrUnknownOverlay is returned when a combined overlay names an overlay that was never defined.
	ErrUnknownOverlay = errors.New("no such overlay")
	// ErrAmbiguousOverlay is returned when a combined overlay names an overlay without a
	// directory segment, such as a secret overlay.
	ErrAmbiguousOverlay = errors.New("overlay cannot be combined")
)
