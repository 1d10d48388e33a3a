package overlay

import "errors"

var (
	// ErrSourceRead indicates a candidate could not be read.
	ErrSourceRead = errors.New("read config source")
	// ErrSourceParse indicates a candidate was read but its contents are malformed.
	ErrSourceParse = errors.New("parse config source")
	// ErrNoHandler indicates a candidate has no registered parser. Candidates are
	// only generated for registered extensions, so seeing this points at a
	// registry that changed after candidates were listed.
	ErrNoHandler = errors.New("no handler for config source")
	// ErrSourceMissing indicates a secret path holds no secret.
	ErrSourceMissing = errors.New("config source missing")
)
