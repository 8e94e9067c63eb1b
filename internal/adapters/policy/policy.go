// Package policy evaluates learned competitors. A checkpoint is a YAML file
// describing a linear softmax policy; evaluation is inference only and never
// touches the weights.
package policy

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Policy maps a batch of observations and action masks to one action per row.
type Policy interface {
	Decide(ctx context.Context, obs [][]float64, masks [][]bool) ([]int, error)
}

// Checkpoint holds the parameters of a linear softmax policy.
// Weights has one row per action and one column per observation feature.
type Checkpoint struct {
	Weights     [][]float64 `koanf:"weights"`
	Bias        []float64   `koanf:"bias"`
	Temperature float64     `koanf:"temperature"`
	Greedy      bool        `koanf:"greedy"`
	Seed        int64       `koanf:"seed"`
}

// Validate checks that the parameters are well formed.
func (c Checkpoint) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: no weights", ErrCheckpoint)
	}
	width := len(c.Weights[0])
	if width == 0 {
		return fmt.Errorf("%w: empty weight row", ErrCheckpoint)
	}
	for i, row := range c.Weights {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrCheckpoint, i, len(row), width)
		}
	}
	if c.Bias != nil && len(c.Bias) != len(c.Weights) {
		return fmt.Errorf("%w: bias has %d entries for %d actions", ErrCheckpoint, len(c.Bias), len(c.Weights))
	}
	if c.Temperature < 0 || math.IsNaN(c.Temperature) {
		return fmt.Errorf("%w: temperature %v", ErrCheckpoint, c.Temperature)
	}
	return nil
}

// Actions returns the size of the action space.
func (c Checkpoint) Actions() int { return len(c.Weights) }

// Features returns the expected observation length.
func (c Checkpoint) Features() int {
	if len(c.Weights) == 0 {
		return 0
	}
	return len(c.Weights[0])
}

// Linear is a Policy backed by a Checkpoint. Safe for concurrent use.
type Linear struct {
	cp  Checkpoint
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Policy = (*Linear)(nil)

// NewLinear validates cp and builds a policy. A zero temperature means greedy.
func NewLinear(cp Checkpoint) (*Linear, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if cp.Temperature == 0 {
		cp.Greedy = true
	}
	seed := cp.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Linear{
		cp:  cp,
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // action sampling
	}, nil
}

// Decide implements Policy.
func (l *Linear) Decide(ctx context.Context, obs [][]float64, masks [][]bool) ([]int, error) {
	if len(obs) != len(masks) {
		return nil, fmt.Errorf("%w: %d observations, %d masks", ErrShape, len(obs), len(masks))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	actions := make([]int, len(obs))
	logits := make([]float64, l.cp.Actions())
	for i := range obs {
		if len(obs[i]) != l.cp.Features() {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(obs[i]), l.cp.Features())
		}
		if len(masks[i]) != l.cp.Actions() {
			return nil, fmt.Errorf("%w: row %d mask has %d entries, want %d", ErrShape, i, len(masks[i]), l.cp.Actions())
		}
		l.logits(obs[i], logits)
		a, err := l.pick(logits, masks[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		actions[i] = a
	}
	return actions, nil
}

func (l *Linear) logits(x []float64, out []float64) {
	for a, row := range l.cp.Weights {
		z := 0.0
		if l.cp.Bias != nil {
			z = l.cp.Bias[a]
		}
		for j, w := range row {
			z += w * x[j]
		}
		out[a] = z
	}
}

// pick selects among legal actions: argmax when greedy, otherwise a sample
// from the masked softmax.
func (l *Linear) pick(logits []float64, mask []bool) (int, error) {
	best, bestZ := -1, math.Inf(-1)
	for a, z := range logits {
		if mask[a] && z > bestZ {
			best, bestZ = a, z
		}
	}
	if best < 0 {
		return 0, ErrNoLegalAction
	}
	if l.cp.Greedy {
		return best, nil
	}

	probs := make([]float64, len(logits))
	total := 0.0
	for a, z := range logits {
		if !mask[a] {
			continue
		}
		probs[a] = math.Exp((z - bestZ) / l.cp.Temperature)
		total += probs[a]
	}
	x := l.rng.Float64() * total
	for a, p := range probs {
		if !mask[a] {
			continue
		}
		if x < p {
			return a, nil
		}
		x -= p
	}
	return best, nil
}
