package worker

import "errors"

// ErrCancelled is the outcome of a job whose request was cancelled before
// the write was attempted.
var ErrCancelled = errors.New("cancelled")
