// Package stack assembles the ordered overlay stack a Finder resolves
// against. Overlays are applied in index order: the first overlay is the
// base and the last one wins conflicts.
//
// A Configuration is built once during setup and treated as read-only
// afterwards; it is safe to share between concurrent readers but not to
// modify while keys are being resolved.
package stack
