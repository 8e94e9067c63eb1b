package local

import (
	"math/rand"
	"sort"
)

// Moves of the duel. Move a beats b iff (a-b) mod 5 is 1 or 3.
const (
	Rock = iota
	Paper
	Scissors
	Spock
	Lizard

	NumMoves
)

var moveNames = [NumMoves]string{"rock", "paper", "scissors", "spock", "lizard"}

// MoveName returns the readable name of move m.
func MoveName(m int) string {
	if m < 0 || m >= NumMoves {
		return "none"
	}
	return moveNames[m]
}

// Beats reports whether move a beats move b.
func Beats(a, b int) bool {
	d := ((a-b)%NumMoves + NumMoves) % NumMoves
	return d == 1 || d == 3
}

// history is what a bot sees about its own game.
type history struct {
	own []int
	opp []int
}

func (h history) lastOpp() (int, bool) {
	if len(h.opp) == 0 {
		return 0, false
	}
	return h.opp[len(h.opp)-1], true
}

// Bot is a built-in scripted strategy.
type Bot interface {
	Move(h history, mask []bool, rng *rand.Rand) int
}

type botFunc func(h history, mask []bool, rng *rand.Rand) int

func (f botFunc) Move(h history, mask []bool, rng *rand.Rand) int { return f(h, mask, rng) }

// bots maps strategy identifiers to constructors. Bots may keep state, so
// every game gets its own instance.
var bots = map[string]func() Bot{ //nolint:gochecknoglobals // static registry
	"randomAI": func() Bot { return botFunc(randomMove) },
	"passiveAI": func() Bot {
		return botFunc(func(_ history, mask []bool, _ *rand.Rand) int { return firstAllowed(Rock, mask) })
	},
	"cycleAI": func() Bot {
		return botFunc(func(h history, mask []bool, _ *rand.Rand) int { return firstAllowed(len(h.own)%NumMoves, mask) })
	},
	"counterAI": func() Bot {
		return botFunc(func(h history, mask []bool, rng *rand.Rand) int {
			last, ok := h.lastOpp()
			if !ok {
				return randomMove(h, mask, rng)
			}
			return firstAllowed(counterOf(last), mask)
		})
	},
	"mirrorAI": func() Bot {
		return botFunc(func(h history, mask []bool, rng *rand.Rand) int {
			last, ok := h.lastOpp()
			if !ok {
				return randomMove(h, mask, rng)
			}
			return firstAllowed(last, mask)
		})
	},
	"biasedAI": func() Bot {
		weights := [NumMoves]float64{0.1, 0.35, 0.35, 0.1, 0.1}
		return botFunc(func(_ history, mask []bool, rng *rand.Rand) int {
			return weightedMove(weights[:], mask, rng)
		})
	},
}

// Strategies lists the built-in bot identifiers.
func Strategies() []string {
	out := make([]string, 0, len(bots))
	for name := range bots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func newBot(strategy string) (Bot, bool) {
	mk, ok := bots[strategy]
	if !ok {
		return nil, false
	}
	return mk(), true
}

// counterOf returns the lowest move that beats m.
func counterOf(m int) int {
	for c := 0; c < NumMoves; c++ {
		if Beats(c, m) {
			return c
		}
	}
	return m
}

// firstAllowed returns pref if legal, otherwise the next legal move.
func firstAllowed(pref int, mask []bool) int {
	for i := 0; i < NumMoves; i++ {
		m := (pref + i) % NumMoves
		if mask[m] {
			return m
		}
	}
	return pref
}

func randomMove(_ history, mask []bool, rng *rand.Rand) int {
	return weightedMove([]float64{1, 1, 1, 1, 1}, mask, rng)
}

func weightedMove(weights []float64, mask []bool, rng *rand.Rand) int {
	total := 0.0
	for m, w := range weights {
		if mask[m] {
			total += w
		}
	}
	x := rng.Float64() * total
	last := 0
	for m, w := range weights {
		if !mask[m] {
			continue
		}
		last = m
		if x < w {
			return m
		}
		x -= w
	}
	return last
}
