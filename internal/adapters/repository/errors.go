package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors.
var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrInvalidRange = errors.New("invalid date range")
	ErrClosed       = errors.New("store closed")
)

func errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
