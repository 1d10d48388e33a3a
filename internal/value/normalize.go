package value

import (
	"fmt"
	"reflect"
)

// Normalize rewrites parser output into the canonical raw shape: every
// mapping becomes map[string]any (keys stringified), every sequence []any,
// recursively. Scalars pass through. Secret stores and parsers with their own
// key conventions go through here so merging never sees two spellings of the
// same key.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[keyString(k)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case []byte:
		return string(t)
	case *Map:
		return t.Native()
	case *List:
		return t.Native()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[keyString(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

// keyString maps any key onto its string spelling. Named string types
// (the closest Go has to symbols) and fmt.Stringer values collapse onto the
// same key as the plain string.
func keyString(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(k)
	}
}

// IsMapping reports whether v can take part in a key-by-key merge.
func IsMapping(v any) bool {
	switch v.(type) {
	case map[string]any, *Map:
		return true
	default:
		return false
	}
}
