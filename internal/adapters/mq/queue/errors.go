package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("allocation queue full")
	ErrClosed = errors.New("allocation queue closed")
)
