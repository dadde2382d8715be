package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrPassInProgress = errors.New("allocation pass already running for event")
	ErrBackpressure   = errors.New("allocation queue is full")
	ErrJobNotFound    = errors.New("allocation job not found")
	ErrInvalidInput   = errors.New("invalid input")
)
