package value

// Merge folds next into acc. When both are mappings the result holds the
// union of their keys: a key present on both sides recurses if both values
// are mappings and otherwise takes next's value. In every other case next
// replaces acc outright; sequences are never merged.
//
// Neither argument is modified. Both are expected in the canonical raw shape
// (see Normalize).
func Merge(acc, next any) any {
	acc, next = unwrap(acc), unwrap(next)
	a, aok := acc.(map[string]any)
	b, bok := next.(map[string]any)
	if !aok || !bok {
		return next
	}

	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if old, ok := out[k]; ok && IsMapping(old) && IsMapping(v) {
			out[k] = Merge(old, v)
			continue
		}
		out[k] = v
	}
	return out
}

func unwrap(v any) any {
	if m, ok := v.(*Map); ok {
		return m.Native()
	}
	return v
}
