package availability

import "errors"

// Sentinel kinds for availability errors.
var (
	// ErrReadFailed means a member's calendar could not be read. The whole
	// computation fails because a partial view could report busy time as free.
	ErrReadFailed       = errors.New("could not check schedules")
	ErrInvalidWindow    = errors.New("invalid work window")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidDuration  = errors.New("invalid minimum duration")
)
