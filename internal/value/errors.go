package value

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by every mutating method of a frozen Map or List.
var ErrFrozen = errors.New("value is frozen")

func errIndex(i, n int) error {
	return fmt.Errorf("index %d out of range [0:%d]", i, n)
}
