// Package overlay implements the layers of a configuration stack. An Overlay
// knows where values for a key could live (its candidates) and how to read
// one of them; it never merges. File overlays search directories for
// key.<ext> files, secret overlays read key paths from a secret store.
package overlay
