// Package repository persists competitors and match records and serves
// leaderboard queries.
package repository

import (
	"context"

	"github.com/okian/league/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank       int
	Competitor model.Competitor
	// Score is the conservative skill estimate mu - 3*sigma.
	Score float64
}

// Registry provides read/write access to the league state.
type Registry interface {
	// Upsert registers c if its name is unknown. An existing competitor is
	// returned untouched and created is false.
	Upsert(ctx context.Context, c model.Competitor) (stored model.Competitor, created bool, err error)

	// Get returns a competitor by name or ErrNotFound.
	Get(ctx context.Context, name string) (model.Competitor, error)

	// List returns every competitor ordered by name.
	List(ctx context.Context) ([]model.Competitor, error)

	// HasHistory reports whether any match record exists.
	HasHistory(ctx context.Context) (bool, error)

	// CommitBatch atomically stores both updated ratings and appends rec.
	// Competitors are matched by name; rec's challenger and defender must
	// name them. The stored record is returned with its ID set.
	CommitBatch(ctx context.Context, challenger, defender model.Competitor, rec model.MatchRecord) (model.MatchRecord, error)

	// History returns the records where name was the challenger, oldest first.
	History(ctx context.Context, name string) ([]model.MatchRecord, error)

	// Standings returns up to limit rows ordered by score desc, name asc.
	Standings(ctx context.Context, limit int) ([]Entry, error)

	// Count returns the number of competitors.
	Count(ctx context.Context) (int, error)

	Close() error
}
