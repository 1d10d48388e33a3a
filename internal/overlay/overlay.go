package overlay

import "strings"

// Overlay is one layer of configuration precedence.
type Overlay interface {
	// Name identifies the overlay within its stack.
	Name() string
	// Locations returns the directories or path prefixes searched, in order.
	Locations() []string
	// CandidatesFor lists every source that could supply key, in location
	// order. No candidates is an empty result, not an error.
	CandidatesFor(key string) ([]string, error)
	// Fetch reads and parses one source into the canonical raw shape.
	Fetch(source string) (any, error)
	// AllKeys lists every key discoverable under the overlay's locations.
	AllKeys() ([]string, error)
}

// PlainKey reports whether key names a single entry below a location: it
// must be non-empty, must not be "." or "..", and must not contain a path
// separator. Keys that fail the check have no candidates in any overlay.
func PlainKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
