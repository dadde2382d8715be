package allocation

import "errors"

// Sentinel kinds for allocation errors.
var (
	ErrNoGateway      = errors.New("allocation gateway not configured")
	ErrFetch          = errors.New("allocation snapshot fetch failed")
	ErrCommit         = errors.New("assignment batch commit failed")
	ErrMissingOutcome = errors.New("store reported no outcome for assignment")
)
