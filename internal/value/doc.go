// Package value defines the canonical structured value produced by resolving
// a configuration key: *Map for mappings, *List for sequences and plain Go
// scalars for everything else. It also holds the deep-merge rule applied
// across overlays.
package value
