package report

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidLimit = errors.New("invalid limit")
)
