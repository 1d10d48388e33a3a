package finder

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/strata/internal/overlay"
	"github.com/eugenenazirov/strata/internal/stack"
	"github.com/eugenenazirov/strata/internal/value"
)

// Finder resolves keys by deep-merging every overlay's sources in stack order.
type Finder struct {
	config *stack.Configuration
}

// New returns a Finder for cfg. When cfg.Preload is set every known key is
// resolved once and the first failure is returned.
func New(cfg *stack.Configuration) (*Finder, error) {
	f := &Finder{config: cfg}
	if cfg.Preload {
		if err := f.Preload(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Load resolves key. Sources are fetched overlay by overlay, in candidate
// order, and folded with value.Merge so later sources win. Mappings come back
// as *value.Map (frozen when the configuration asks for it); a non-mapping
// source replaces whatever was accumulated before it.
//
// Any read or parse failure aborts the whole resolution.
func (f *Finder) Load(key string) (any, error) {
	overlays := f.config.Overlays()

	candidates := make([][]string, len(overlays))
	total := 0
	for i, o := range overlays {
		sources, err := o.CandidatesFor(key)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", o.Name(), err)
		}
		candidates[i] = sources
		total += len(sources)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	var (
		result  any
		fetched int
	)
	for i, o := range overlays {
		for _, source := range candidates[i] {
			v, err := o.Fetch(source)
			if errors.Is(err, overlay.ErrSourceMissing) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load %q from overlay %s: %w", key, o.Name(), err)
			}
			result = value.Merge(result, v)
			fetched++
		}
	}
	if fetched == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	result = value.Convert(result)
	if f.config.Freeze {
		value.Freeze(result)
	}
	return result, nil
}

// AllKeyNames returns every key any overlay can supply, de-duplicated, in
// order of first appearance.
func (f *Finder) AllKeyNames() ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, o := range f.config.Overlays() {
		keys, err := o.AllKeys()
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", o.Name(), err)
		}
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			names = append(names, k)
		}
	}
	return names, nil
}

// Preload resolves every known key once and reports the first failure.
func (f *Finder) Preload() error {
	names, err := f.AllKeyNames()
	if err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	for _, name := range names {
		if _, err := f.Load(name); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
	}
	return nil
}
