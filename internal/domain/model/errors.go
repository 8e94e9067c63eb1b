package model

import "errors"

// Sentinel kinds for domain model errors.
var (
	ErrInvalidCompetitor = errors.New("invalid competitor")
	ErrUnknownOutcome    = errors.New("unknown outcome code")
)
