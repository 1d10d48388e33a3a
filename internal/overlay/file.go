package overlay

import (
	"fmt"
	"path"
	"strings"

	"github.com/eugenenazirov/strata/internal/handler"
	"github.com/eugenenazirov/strata/internal/value"
)

// File is an overlay whose locations are directories and whose keys are file
// basenames: key "database" is supplied by database.yml, database.json and
// so on, for every extension the handler registry knows.
type File struct {
	name      string
	locations []string
	fsys      FileSystem
	handlers  *handler.Registry
}

// NewFile builds a file overlay. Handlers are consulted on every call, so
// extensions registered later still take part.
func NewFile(name string, locations []string, fsys FileSystem, handlers *handler.Registry) *File {
	return &File{
		name:      name,
		locations: dedupe(locations),
		fsys:      fsys,
		handlers:  handlers,
	}
}

// Name implements Overlay.
func (f *File) Name() string {
	return f.name
}

// Locations implements Overlay.
func (f *File) Locations() []string {
	return cloneStrings(f.locations)
}

// CandidatesFor implements Overlay. Order is location-major, then extension
// registration order; glob characters in key are honoured. A key that is not
// a plain name has no candidates.
func (f *File) CandidatesFor(key string) ([]string, error) {
	if !PlainKey(key) {
		return nil, nil
	}
	var out []string
	for _, dir := range f.locations {
		for _, ext := range f.handlers.Extensions() {
			matches, err := f.fsys.List(dir, key+"."+ext)
			if err != nil {
				return nil, fmt.Errorf("list %s in %s: %w", key, dir, err)
			}
			out = append(out, matches...)
		}
	}
	return dedupe(out), nil
}

// Fetch implements Overlay.
func (f *File) Fetch(source string) (any, error) {
	parse, _, ok := f.handlers.Resolve(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, source)
	}

	contents, err := f.fsys.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceRead, source, err)
	}

	parsed, err := parse(contents)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceParse, source, err)
	}
	return value.Normalize(parsed), nil
}

// AllKeys implements Overlay.
func (f *File) AllKeys() ([]string, error) {
	matches, err := f.CandidatesFor("*")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(matches))
	for _, match := range matches {
		base := path.Base(strings.ReplaceAll(match, "\\", "/"))
		_, token, ok := f.handlers.Resolve(base)
		if !ok {
			continue
		}
		keys = append(keys, strings.TrimSuffix(base, "."+token))
	}
	return dedupe(keys), nil
}
