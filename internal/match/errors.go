package match

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrSimulatorFault = errors.New("simulator fault")
	ErrPolicy         = errors.New("policy failed")
	ErrInvalidBatch   = errors.New("invalid batch")
	ErrMissingPolicy  = errors.New("missing policy for learned side")
)
