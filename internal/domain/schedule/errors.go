package schedule

import "errors"

// Sentinel kinds for scheduling errors.
var (
	ErrUnknownKind = errors.New("unknown competitor kind")
)
