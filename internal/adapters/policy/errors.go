package policy

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrCheckpoint     = errors.New("invalid checkpoint")
	ErrShape          = errors.New("observation shape mismatch")
	ErrNoLegalAction  = errors.New("no legal action")
	ErrLoadCheckpoint = errors.New("load checkpoint failed")
)
