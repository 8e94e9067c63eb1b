package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound          = errors.New("competitor not found")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
	ErrInvalidCompetitor = errors.New("invalid competitor")
	ErrInvalidRecord     = errors.New("invalid match record")
	ErrStorage           = errors.New("registry storage failed")
)
