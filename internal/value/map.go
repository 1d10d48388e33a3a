package value

import (
	"encoding/json"
	"iter"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Map is the resolved form of a configuration mapping. Keys are strings;
// lookups accept any key whose string spelling matches, and dotted paths
// ("db.primary.host") descend through nested maps and list indexes.
type Map struct {
	entries map[string]any
	frozen  bool
}

// NewMap builds a Map from raw data, normalizing and converting nested values.
func NewMap(raw map[string]any) *Map {
	return Convert(Normalize(raw)).(*Map)
}

// Len returns the number of top-level keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Get returns the value stored under key. A key that is not present verbatim
// but contains dots is treated as a path, so Get("a.b") equals
// Get("a") followed by Get("b").
func (m *Map) Get(key any) (any, bool) {
	k := keyString(key)
	if v, ok := m.entries[k]; ok {
		return v, true
	}
	if !strings.Contains(k, ".") {
		return nil, false
	}
	return m.Dig(strings.Split(k, ".")...)
}

// Dig walks path segments through nested maps and lists. A segment applied
// to a List must be a valid index.
func (m *Map) Dig(path ...string) (any, bool) {
	return dig(m, path)
}

// Lookup resolves a dotted path against any resolved value. An empty path
// returns v itself.
func Lookup(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	if m, ok := v.(*Map); ok {
		return m.Get(path)
	}
	return dig(v, strings.Split(path, "."))
}

func dig(cur any, path []string) (any, bool) {
	for _, seg := range path {
		switch node := cur.(type) {
		case *Map:
			v, ok := node.entries[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case *List:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			v, ok := node.Index(idx)
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the value at key when it is a string.
func (m *Map) GetString(key any) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetMap returns the nested Map at key.
func (m *Map) GetMap(key any) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	nested, ok := v.(*Map)
	return nested, ok
}

// Has reports whether key (or dotted path) resolves.
func (m *Map) Has(key any) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the top-level keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All iterates key/value pairs in sorted key order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range m.Keys() {
			if !yield(k, m.entries[k]) {
				return
			}
		}
	}
}

// Set stores v under key. Raw maps and slices are converted.
func (m *Map) Set(key any, v any) error {
	if m.frozen {
		return ErrFrozen
	}
	m.entries[keyString(key)] = Convert(Normalize(v))
	return nil
}

// Delete removes key.
func (m *Map) Delete(key any) error {
	if m.frozen {
		return ErrFrozen
	}
	delete(m.entries, keyString(key))
	return nil
}

// Frozen reports whether mutation is rejected.
func (m *Map) Frozen() bool {
	return m.frozen
}

// Merge deep-merges other over m and returns a new, unfrozen Map.
func (m *Map) Merge(other *Map) *Map {
	return Convert(Merge(m.Native(), other.Native())).(*Map)
}

// Equal compares structurally.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.DeepEqual(m.Native(), other.Native())
}

// Clone returns a deep, unfrozen copy.
func (m *Map) Clone() *Map {
	return Convert(m.Native()).(*Map)
}

// Native returns a deep copy as plain map[string]any / []any values.
func (m *Map) Native() map[string]any {
	out := make(map[string]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = native(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Native())
}

// MarshalYAML implements yaml.Marshaler.
func (m *Map) MarshalYAML() (any, error) {
	return m.Native(), nil
}
