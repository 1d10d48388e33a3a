// Package finder resolves configuration keys against a stack.Configuration.
// Every Load walks the whole overlay stack again; caching belongs to the
// caller.
package finder
