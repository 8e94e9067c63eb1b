package service

import (
	"errors"
)

// Sentinel error kinds for the league service.
var (
	ErrNoCompetitors  = errors.New("no competitors")
	ErrMissingBackend = errors.New("missing league backend")
	ErrInvalidOption  = errors.New("invalid league option")
)
