package finder

import "errors"

// ErrNotFound is returned when no overlay in the stack has a source for a key.
var ErrNotFound = errors.New("config key not found")
