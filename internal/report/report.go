// Package report provides read-only projections of the league: ranked
// standings and per-opponent head-to-head summaries.
package report

import (
	"context"
	"fmt"
	"sort"

	osrating "github.com/intinig/go-openskill/rating"
	ostypes "github.com/intinig/go-openskill/types"
	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/pkg/logger"
)

// Standing is one leaderboard row.
type Standing struct {
	Rank         int        `json:"rank"`
	Name         string     `json:"name"`
	Kind         model.Kind `json:"kind"`
	Mu           float64    `json:"mu"`
	Sigma        float64    `json:"sigma"`
	Conservative float64    `json:"conservative"`
}

// HeadToHead aggregates every batch a competitor played as challenger
// against one defender.
type HeadToHead struct {
	Opponent string `json:"opponent"`
	model.Tally
	Stats
	// DrawChance is OpenSkill's draw prediction from the current ratings,
	// using the league's mu, sigma and beta. Its draw margin comes from the
	// team count, not the league's draw probability.
	DrawChance float64 `json:"draw_chance"`
	// Quality is the TrueSkill match quality of the current ratings.
	Quality float64 `json:"quality"`
	// WinChance is the probability the challenger wins, ignoring draws.
	WinChance float64 `json:"win_chance"`
}

// Option applies a configuration option to the Reporter.
type Option func(*Reporter)

// WithLogger sets the reporter logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithModel sets the rating model behind the predicted columns.
func WithModel(m *rating.Model) Option {
	return func(r *Reporter) {
		if m != nil {
			r.model = m
		}
	}
}

// Reporter reads standings and history from a registry.
type Reporter struct {
	registry repository.Registry
	model    *rating.Model
	logger   logger.Logger
}

// New constructs a Reporter. Predictions use default rating parameters
// unless WithModel is given.
func New(reg repository.Registry, opts ...Option) *Reporter {
	m, _ := rating.New()
	r := &Reporter{registry: reg, model: m, logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Leaderboard returns every competitor ordered by mu - 3*sigma, descending.
func (r *Reporter) Leaderboard(ctx context.Context) ([]Standing, error) {
	n, err := r.registry.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Standing{}, nil
	}
	return r.Top(ctx, n)
}

// Top returns the first limit rows of the leaderboard.
func (r *Reporter) Top(ctx context.Context, limit int) ([]Standing, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	entries, err := r.registry.Standings(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Standing, len(entries))
	for i, e := range entries {
		out[i] = Standing{
			Rank:         e.Rank,
			Name:         e.Competitor.Name,
			Kind:         e.Competitor.Kind,
			Mu:           e.Competitor.Rating.Mu,
			Sigma:        e.Competitor.Rating.Sigma,
			Conservative: e.Score,
		}
	}
	return out, nil
}

// MatchHistory sums the records where name was the challenger, grouped by
// defender and ordered by opponent name. Unknown names yield
// repository.ErrNotFound.
func (r *Reporter) MatchHistory(ctx context.Context, name string) ([]HeadToHead, error) {
	self, err := r.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	records, err := r.registry.History(ctx, name)
	if err != nil {
		return nil, err
	}

	byOpponent := make(map[string]*HeadToHead)
	for _, rec := range records {
		h, ok := byOpponent[rec.Defender]
		if !ok {
			h = &HeadToHead{Opponent: rec.Defender}
			byOpponent[rec.Defender] = h
		}
		h.Merge(rec.Tally)
	}

	initial := r.model.Default()
	beta := r.model.Beta()
	opts := &ostypes.OpenSkillOptions{Mu: &initial.Mu, Sigma: &initial.Sigma, Beta: &beta}

	out := make([]HeadToHead, 0, len(byOpponent))
	for _, h := range byOpponent {
		h.Stats = Compute(h.Tally)
		opp, err := r.registry.Get(ctx, h.Opponent)
		if err != nil {
			return nil, err
		}
		h.DrawChance = osrating.PredictDraw([]ostypes.Team{
			{{Mu: self.Rating.Mu, Sigma: self.Rating.Sigma}},
			{{Mu: opp.Rating.Mu, Sigma: opp.Rating.Sigma}},
		}, opts)
		if h.Quality, err = r.model.Quality(self.Rating, opp.Rating); err != nil {
			return nil, err
		}
		h.WinChance = r.model.WinProbability(self.Rating, opp.Rating)
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opponent < out[j].Opponent })

	r.logger.Debug(ctx, "match history built",
		logger.String("name", name),
		logger.Int("records", len(records)),
		logger.Int("opponents", len(out)),
	)
	return out, nil
}
