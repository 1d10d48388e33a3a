package secrets

import "errors"

var (
	// ErrInvalidPath is returned for empty or absolute-looking secret paths.
	ErrInvalidPath = errors.New("secret path must be non-empty and relative")
	// ErrInvalidSecret is returned when a secret payload is not a mapping.
	ErrInvalidSecret = errors.New("secret data must be a JSON object")
)
