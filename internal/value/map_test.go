package value

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

type symbol string

type stringerKey struct{ name string }

func (s stringerKey) String() string { return s.name }

func sampleMap() *Map {
	return NewMap(map[string]any{
		"name": "app",
		"db": map[string]any{
			"primary": map[string]any{"host": "db1", "port": 5432},
		},
		"servers": []any{
			map[string]any{"host": "a"},
			map[string]any{"host": "b"},
		},
		"a.b": "literal dotted key",
	})
}

func TestMapLookupEquivalence(t *testing.T) {
	t.Parallel()

	m := sampleMap()

	byString, ok := m.Get("db")
	if !ok {
		t.Fatalf("expected db key")
	}
	bySymbol, ok := m.Get(symbol("db"))
	if !ok {
		t.Fatalf("expected symbol lookup to succeed")
	}
	byStringer, ok := m.Get(stringerKey{name: "db"})
	if !ok {
		t.Fatalf("expected stringer lookup to succeed")
	}
	if byString != bySymbol || byString != byStringer {
		t.Fatalf("expected identical values for all key spellings")
	}

	viaPath, ok := m.Get("db.primary.host")
	if !ok || viaPath != "db1" {
		t.Fatalf("expected dotted lookup to return db1, got %v", viaPath)
	}
	viaDig, ok := m.Dig("db", "primary", "host")
	if !ok || viaDig != viaPath {
		t.Fatalf("expected Dig to match dotted lookup, got %v", viaDig)
	}
	primary, _ := m.GetMap("db")
	nested, _ := primary.GetMap("primary")
	if host, _ := nested.GetString("host"); host != viaPath {
		t.Fatalf("expected nested lookup to match dotted lookup, got %v", host)
	}
}

func TestMapLookupEdgeCases(t *testing.T) {
	t.Parallel()

	m := sampleMap()

	if v, _ := m.Get("a.b"); v != "literal dotted key" {
		t.Fatalf("expected literal key to win over path, got %v", v)
	}
	if v, ok := m.Get("servers.1.host"); !ok || v != "b" {
		t.Fatalf("expected list index traversal, got %v", v)
	}
	for _, path := range []string{"servers.9.host", "servers.x", "name.first", "missing", "db.primary.user"} {
		if m.Has(path) {
			t.Fatalf("expected %q to be absent", path)
		}
	}
	if _, ok := m.GetString("db"); ok {
		t.Fatalf("expected GetString to reject non-string value")
	}
}

func TestConvertReachesMappingsInsideLists(t *testing.T) {
	t.Parallel()

	servers, ok := sampleMap().Get("servers")
	if !ok {
		t.Fatalf("expected servers")
	}
	list, ok := servers.(*List)
	if !ok {
		t.Fatalf("expected *List, got %T", servers)
	}
	first, _ := list.Index(0)
	if _, ok := first.(*Map); !ok {
		t.Fatalf("expected list element to be *Map, got %T", first)
	}
}

func TestMapIterationIsSorted(t *testing.T) {
	t.Parallel()

	m := NewMap(map[string]any{"c": 3, "a": 1, "b": 2})

	var keys []string
	for k := range m.All() {
		keys = append(keys, k)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected iteration order %v", keys)
	}
}

func TestMapMutation(t *testing.T) {
	t.Parallel()

	m := sampleMap()
	if err := m.Set(symbol("extra"), map[string]any{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := m.Get("extra.k"); v != "v" {
		t.Fatalf("expected converted nested value, got %v", v)
	}
	if err := m.Delete("name"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Has("name") {
		t.Fatalf("expected name to be deleted")
	}
}

func TestFreezeRejectsMutationEverywhere(t *testing.T) {
	t.Parallel()

	m := Freeze(sampleMap()).(*Map)
	if !m.Frozen() {
		t.Fatalf("expected map to be frozen")
	}
	if err := m.Set("name", "other"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
	if err := m.Delete("name"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}

	db, _ := m.GetMap("db.primary")
	if err := db.Set("host", "x"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected nested map to be frozen, got %v", err)
	}

	v, _ := m.Get("servers")
	list := v.(*List)
	if err := list.Append("c"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected list to be frozen, got %v", err)
	}
	if err := list.Set(0, "c"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected list to be frozen, got %v", err)
	}
	first, _ := list.Index(0)
	if err := first.(*Map).Set("host", "z"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected map inside list to be frozen, got %v", err)
	}

	if host, _ := m.Get("db.primary.host"); host != "db1" {
		t.Fatalf("frozen value changed: %v", host)
	}
}

func TestCloneIsUnfrozenAndIndependent(t *testing.T) {
	t.Parallel()

	frozen := Freeze(sampleMap()).(*Map)
	clone := frozen.Clone()

	if clone.Frozen() {
		t.Fatalf("expected clone to be unfrozen")
	}
	if !clone.Equal(frozen) {
		t.Fatalf("expected clone to equal source")
	}
	if err := clone.Set("name", "changed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, _ := frozen.GetString("name"); name != "app" {
		t.Fatalf("expected source untouched, got %s", name)
	}
	if clone.Equal(frozen) {
		t.Fatalf("expected maps to differ after mutation")
	}
}

func TestMapMergeMethod(t *testing.T) {
	t.Parallel()

	base := NewMap(map[string]any{"x": 1, "y": 2, "nested": map[string]any{"keep": true}})
	over := NewMap(map[string]any{"y": 3, "z": 4, "nested": map[string]any{"add": 1}})

	got := base.Merge(over)
	want := NewMap(map[string]any{"x": 1, "y": 3, "z": 4, "nested": map[string]any{"keep": true, "add": 1}})
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want.Native(), got.Native())
	}
}

func TestListOperations(t *testing.T) {
	t.Parallel()

	l := Convert([]any{1, 2}).(*List)
	if err := l.Append(map[string]any{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", l.Len())
	}
	last, _ := l.Index(2)
	if _, ok := last.(*Map); !ok {
		t.Fatalf("expected appended mapping to be converted, got %T", last)
	}
	if err := l.Set(5, "x"); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, ok := l.Index(-1); ok {
		t.Fatalf("expected negative index to miss")
	}

	values := l.Values()
	values[0] = "changed"
	if first, _ := l.Index(0); first != 1 {
		t.Fatalf("expected Values to return a copy, got %v", first)
	}
}

func TestMarshalling(t *testing.T) {
	t.Parallel()

	m := NewMap(map[string]any{"name": "app", "ports": []any{1, 2}})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"name":"app","ports":[1,2]}` {
		t.Fatalf("unexpected JSON %s", data)
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "name: app\nports:\n    - 1\n    - 2\n" {
		t.Fatalf("unexpected YAML %q", out)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	list := Convert([]any{map[string]any{"host": "a"}, "b"})
	tests := []struct {
		name  string
		v     any
		path  string
		want  any
		found bool
	}{
		{"empty path", "scalar", "", "scalar", true},
		{"map path", NewMap(map[string]any{"db": map[string]any{"port": 5432}}), "db.port", 5432, true},
		{"list index", list, "1", "b", true},
		{"list then map", list, "0.host", "a", true},
		{"list bad index", list, "x", nil, false},
		{"scalar path", 42, "a", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.v, tt.path)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if ok && got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
