package value

// Convert turns a canonical raw value into its resolved form: every
// map[string]any becomes a *Map and every []any a *List, at any depth,
// including mappings nested inside sequences. The input is not retained.
func Convert(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := &Map{entries: make(map[string]any, len(t))}
		for k, item := range t {
			m.entries[k] = Convert(item)
		}
		return m
	case []any:
		l := &List{items: make([]any, len(t))}
		for i, item := range t {
			l.items[i] = Convert(item)
		}
		return l
	default:
		return v
	}
}

// Freeze marks every Map and List reachable from v immutable and returns v.
func Freeze(v any) any {
	switch t := v.(type) {
	case *Map:
		for _, item := range t.entries {
			Freeze(item)
		}
		t.frozen = true
	case *List:
		for _, item := range t.items {
			Freeze(item)
		}
		t.frozen = true
	}
	return v
}

// Clone returns a deep, unfrozen copy of a resolved value.
func Clone(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case *List:
		return t.Clone()
	default:
		return v
	}
}

// native is the inverse of Convert.
func native(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Native()
	case *List:
		return t.Native()
	default:
		return v
	}
}
