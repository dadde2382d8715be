package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrAlreadyAssigned = errors.New("task already assigned")
	ErrTaskCompleted   = errors.New("task already completed")
	ErrUnavailable     = errors.New("store unavailable")
	ErrInvalid         = errors.New("invalid record")
)
