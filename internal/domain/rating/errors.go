package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidRating     = errors.New("invalid rating")
	ErrInvalidParameters = errors.New("invalid rating parameters")
)
