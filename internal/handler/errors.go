package handler

import "errors"

var (
	// ErrEmptyExtension is returned when a handler is registered for a blank extension token.
	ErrEmptyExtension = errors.New("handler extension must not be empty")
	// ErrNilParser is returned when a handler is registered without a parse function.
	ErrNilParser = errors.New("handler parse function must not be nil")
)
