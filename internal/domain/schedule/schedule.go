package schedule

import (
	"math/rand"
	"time"

	"github.com/okian/league/internal/domain/model"
)

const defaultSampleSize = 4

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithSeed makes pairing order reproducible. Zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // shuffling, not crypto
		}
	}
}

// WithSampleSize bounds how many incumbents each newcomer meets in Extend.
func WithSampleSize(k int) Option {
	return func(s *Scheduler) {
		if k > 0 {
			s.sampleSize = k
		}
	}
}

// Scheduler builds fixture lists. It is not safe for concurrent use.
type Scheduler struct {
	rng        *rand.Rand
	sampleSize int
}

// New constructs a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // shuffling, not crypto
		sampleSize: defaultSampleSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap returns a full round robin: every unordered pair is shuffled and
// played in both directions, first with the pair reversed, then as listed.
// N competitors yield N*(N-1) fixtures.
func (s *Scheduler) Bootstrap(roster []model.Competitor) []model.Fixture {
	pairs := combinations(roster)
	s.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	return bothDirections(pairs)
}

// Extend schedules newcomers into a league that already has history.
// Newcomers play each other round robin, and each newcomer meets up to
// SampleSize uniformly sampled incumbents, both directions.
func (s *Scheduler) Extend(newcomers, incumbents []model.Competitor) []model.Fixture {
	pairs := combinations(newcomers)
	k := min(s.sampleSize, len(incumbents))
	for _, n := range newcomers {
		for _, idx := range s.rng.Perm(len(incumbents))[:k] {
			pairs = append(pairs, [2]model.Competitor{n, incumbents[idx]})
		}
	}
	s.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	return bothDirections(pairs)
}

func combinations(roster []model.Competitor) [][2]model.Competitor {
	pairs := make([][2]model.Competitor, 0, len(roster)*(len(roster)-1)/2)
	for i := 0; i < len(roster); i++ {
		for j := i + 1; j < len(roster); j++ {
			pairs = append(pairs, [2]model.Competitor{roster[i], roster[j]})
		}
	}
	return pairs
}

func bothDirections(pairs [][2]model.Competitor) []model.Fixture {
	out := make([]model.Fixture, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, model.Fixture{Challenger: p[1], Defender: p[0]})
	}
	for _, p := range pairs {
		out = append(out, model.Fixture{Challenger: p[0], Defender: p[1]})
	}
	return out
}
