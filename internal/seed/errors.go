package seed

import "errors"

// Sentinel kinds for seed errors.
var (
	ErrInvalidConfig    = errors.New("invalid seed config")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrJobFailed        = errors.New("allocation job failed")
	ErrVerification     = errors.New("allocation verification failed")
)
