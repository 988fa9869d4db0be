package ics

import "errors"

// ErrParse wraps errors for files that are not a readable VCALENDAR.
var ErrParse = errors.New("calendar parse failed")
