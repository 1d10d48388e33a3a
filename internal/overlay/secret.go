package overlay

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/strata/internal/value"
)

// SecretStore is the secret backend a Secret overlay reads from.
type SecretStore interface {
	// Read returns the secret at path. found is false when nothing is stored there.
	Read(path string) (data any, found bool, err error)
	// List returns the entries directly under prefix. Entries ending in "/"
	// are sub-prefixes.
	List(prefix string) ([]string, error)
}

// Secret is an overlay whose locations are secret-store path prefixes and
// whose keys are the secret names below them.
type Secret struct {
	name      string
	locations []string
	store     SecretStore
}

// NewSecret builds a secret overlay.
func NewSecret(name string, store SecretStore, locations ...string) *Secret {
	return &Secret{
		name:      name,
		locations: dedupe(locations),
		store:     store,
	}
}

// Name implements Overlay.
func (s *Secret) Name() string {
	return s.name
}

// Locations implements Overlay.
func (s *Secret) Locations() []string {
	return cloneStrings(s.locations)
}

// CandidatesFor implements Overlay. There is exactly one candidate per
// location; whether it exists is only known on Fetch. Keys that are not
// plain names have none.
func (s *Secret) CandidatesFor(key string) ([]string, error) {
	if !PlainKey(key) {
		return nil, nil
	}
	out := make([]string, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, strings.TrimSuffix(loc, "/")+"/"+key)
	}
	return out, nil
}

// Fetch implements Overlay. Whatever key convention the store uses, the
// result comes back as map[string]any so it merges with file values.
func (s *Secret) Fetch(source string) (any, error) {
	data, found, err := s.store.Read(source)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceRead, source, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, source)
	}
	return value.Normalize(data), nil
}

// AllKeys implements Overlay.
func (s *Secret) AllKeys() ([]string, error) {
	var keys []string
	for _, loc := range s.locations {
		entries, err := s.store.List(strings.TrimSuffix(loc, "/"))
		if err != nil {
			return nil, fmt.Errorf("list secrets under %s: %w", loc, err)
		}
		for _, entry := range entries {
			if entry == "" || strings.HasSuffix(entry, "/") {
				continue
			}
			keys = append(keys, entry)
		}
	}
	return dedupe(keys), nil
}
