package handler

import (
	"fmt"
	"strings"
)

// ParseFunc turns raw file contents into a structured value. Implementations
// must fail on malformed input rather than return a partial result.
type ParseFunc func(contents []byte) (any, error)

type entry struct {
	extension string
	parse     ParseFunc
}

// Registry holds the ordered extension -> parser table.
//
// A Registry is not safe for concurrent mutation. Register everything during
// setup; lookups are safe to share once registration has stopped.
type Registry struct {
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry with the YAML, templated YAML, JSON
// and TOML parsers installed.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ParseYAML, "yml", "yaml")
	r.MustRegister(ParseTemplatedYAML, "yml.erb", "yaml.erb", "yml.tmpl", "yaml.tmpl")
	r.MustRegister(ParseJSON, "json")
	r.MustRegister(ParseTOML, "toml")
	return r
}

// Register appends one entry per extension, all sharing parse. Leading dots
// are stripped so "yml" and ".yml" are equivalent.
func (r *Registry) Register(parse ParseFunc, extensions ...string) error {
	if parse == nil {
		return ErrNilParser
	}
	added := make([]entry, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			return ErrEmptyExtension
		}
		added = append(added, entry{extension: ext, parse: parse})
	}
	r.entries = append(r.entries, added...)
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(parse ParseFunc, extensions ...string) {
	if err := r.Register(parse, extensions...); err != nil {
		panic(fmt.Sprintf("register handler %v: %v", extensions, err))
	}
}

// Extensions returns every registered token in registration order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.extension)
	}
	return out
}

// Resolve finds the parser for filename by suffix. The longest matching token
// wins, so "app.yml.erb" resolves to "yml.erb" even when "erb" or "yml" style
// tokens were registered first. Equal-length matches go to the earliest
// registration.
func (r *Registry) Resolve(filename string) (ParseFunc, string, bool) {
	var best *entry
	for i := range r.entries {
		e := &r.entries[i]
		if !strings.HasSuffix(filename, "."+e.extension) {
			continue
		}
		if best == nil || len(e.extension) > len(best.extension) {
			best = e
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best.parse, best.extension, true
}

// Clone returns an independent copy, so callers can extend a shared base
// registry without touching it.
func (r *Registry) Clone() *Registry {
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	return &Registry{entries: entries}
}
