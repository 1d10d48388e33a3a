package value

import (
	"encoding/json"
	"iter"
)

// List is the resolved form of a configuration sequence.
type List struct {
	items  []any
	frozen bool
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.items)
}

// Index returns the element at i.
func (l *List) Index(i int) (any, bool) {
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// All iterates index/element pairs.
func (l *List) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for i, v := range l.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Values returns a shallow copy of the elements.
func (l *List) Values() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Set replaces the element at i.
func (l *List) Set(i int, v any) error {
	if l.frozen {
		return ErrFrozen
	}
	if i < 0 || i >= len(l.items) {
		return errIndex(i, len(l.items))
	}
	l.items[i] = Convert(Normalize(v))
	return nil
}

// Append adds elements to the end.
func (l *List) Append(vs ...any) error {
	if l.frozen {
		return ErrFrozen
	}
	for _, v := range vs {
		l.items = append(l.items, Convert(Normalize(v)))
	}
	return nil
}

// Frozen reports whether mutation is rejected.
func (l *List) Frozen() bool {
	return l.frozen
}

// Clone returns a deep, unfrozen copy.
func (l *List) Clone() *List {
	return Convert(l.Native()).(*List)
}

// Native returns a deep copy as plain []any.
func (l *List) Native() []any {
	out := make([]any, len(l.items))
	for i, v := range l.items {
		out[i] = native(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Native())
}

// MarshalYAML implements yaml.Marshaler.
func (l *List) MarshalYAML() (any, error) {
	return l.Native(), nil
}
