package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidTime    = errors.New("invalid date or time")
	ErrInvalidRequest = errors.New("invalid meeting request")
)
