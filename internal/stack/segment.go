package stack

import "os"

// Segment supplies the directory segment (or secret path) for an overlay:
// either a literal or a provider evaluated once when the overlay is defined.
type Segment struct {
	literal  string
	provider func() string
}

// Literal returns a fixed segment.
func Literal(s string) Segment {
	return Segment{literal: s}
}

// Deferred returns a segment computed by fn at definition time.
func Deferred(fn func() string) Segment {
	return Segment{provider: fn}
}

// Env returns a segment read from the environment variable name at
// definition time. An unset variable yields an empty segment.
func Env(name string) Segment {
	return Deferred(func() string {
		return os.Getenv(name)
	})
}

// Resolve evaluates the segment.
func (s Segment) Resolve() string {
	if s.provider != nil {
		return s.provider()
	}
	return s.literal
}
