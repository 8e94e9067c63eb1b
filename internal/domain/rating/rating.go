// Package rating implements the two-player TrueSkill update used to rank
// league competitors.
package rating

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Default model parameters.
const (
	DefaultMu              = 25.0
	DefaultSigma           = DefaultMu / 3
	DefaultBeta            = DefaultSigma / 2
	DefaultTau             = DefaultSigma / 100
	DefaultDrawProbability = 0.10

	// denomEpsilon guards the truncated Gaussian corrections in the tails.
	denomEpsilon = 1e-300
)

// Rating is a Gaussian belief over a competitor's skill.
type Rating struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// Conservative returns the leaderboard key mu - 3*sigma.
func (r Rating) Conservative() float64 { return r.Mu - 3*r.Sigma }

// Validate reports ErrInvalidRating for non-finite values or a non-positive sigma.
func (r Rating) Validate() error {
	switch {
	case math.IsNaN(r.Mu) || math.IsInf(r.Mu, 0):
		return fmt.Errorf("%w: mu=%v", ErrInvalidRating, r.Mu)
	case math.IsNaN(r.Sigma) || math.IsInf(r.Sigma, 0) || r.Sigma <= 0:
		return fmt.Errorf("%w: sigma=%v", ErrInvalidRating, r.Sigma)
	}
	return nil
}

func (r Rating) String() string {
	return fmt.Sprintf("N(%.3f, %.3f)", r.Mu, r.Sigma)
}

// Model holds TrueSkill environment parameters. It is immutable after New
// and safe for concurrent use.
type Model struct {
	mu              float64
	sigma           float64
	beta            float64
	tau             float64
	drawProbability float64
	drawMargin      float64
}

// New constructs a Model with default parameters overridden by opts.
func New(opts ...Option) (*Model, error) {
	m := &Model{
		mu:              DefaultMu,
		sigma:           DefaultSigma,
		beta:            DefaultBeta,
		tau:             DefaultTau,
		drawProbability: DefaultDrawProbability,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sigma <= 0 || m.beta <= 0 || m.tau < 0 {
		return nil, fmt.Errorf("%w: sigma=%v beta=%v tau=%v", ErrInvalidParameters, m.sigma, m.beta, m.tau)
	}
	if m.drawProbability < 0 || m.drawProbability >= 1 {
		return nil, fmt.Errorf("%w: draw probability %v", ErrInvalidParameters, m.drawProbability)
	}
	// margin for a two-player match
	m.drawMargin = distuv.UnitNormal.Quantile((m.drawProbability+1)/2) * math.Sqrt2 * m.beta
	return m, nil
}

// Beta is the performance spread around a competitor's skill.
func (m *Model) Beta() float64 { return m.beta }

// Default returns the rating assigned to a new competitor.
func (m *Model) Default() Rating {
	return Rating{Mu: m.mu, Sigma: m.sigma}
}

// Rate updates a pair after one game. When drawn is true the order of the
// arguments does not matter. Inputs are never clamped; an invalid rating is
// rejected with ErrInvalidRating.
func (m *Model) Rate(winner, loser Rating, drawn bool) (Rating, Rating, error) {
	if err := winner.Validate(); err != nil {
		return winner, loser, err
	}
	if err := loser.Validate(); err != nil {
		return winner, loser, err
	}

	tau2 := m.tau * m.tau
	w2 := winner.Sigma*winner.Sigma + tau2
	l2 := loser.Sigma*loser.Sigma + tau2
	c2 := 2*m.beta*m.beta + w2 + l2
	c := math.Sqrt(c2)

	t := (winner.Mu - loser.Mu) / c
	e := m.drawMargin / c

	var v, w float64
	if drawn {
		v, w = vDraw(t, e), wDraw(t, e)
	} else {
		v, w = vWin(t, e), wWin(t, e)
	}

	newWinner := Rating{
		Mu:    winner.Mu + w2/c*v,
		Sigma: math.Sqrt(w2 * math.Max(1-w2/c2*w, 0)),
	}
	newLoser := Rating{
		Mu:    loser.Mu - l2/c*v,
		Sigma: math.Sqrt(l2 * math.Max(1-l2/c2*w, 0)),
	}
	if err := newWinner.Validate(); err != nil {
		return winner, loser, err
	}
	if err := newLoser.Validate(); err != nil {
		return winner, loser, err
	}
	return newWinner, newLoser, nil
}

// Quality returns the draw-likelihood based match quality in (0, 1].
func (m *Model) Quality(a, b Rating) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	beta2 := 2 * m.beta * m.beta
	c2 := beta2 + a.Sigma*a.Sigma + b.Sigma*b.Sigma
	d := a.Mu - b.Mu
	return math.Sqrt(beta2/c2) * math.Exp(-d*d/(2*c2)), nil
}

// WinProbability returns P(a beats b) ignoring draws.
func (m *Model) WinProbability(a, b Rating) float64 {
	c := math.Sqrt(2*m.beta*m.beta + a.Sigma*a.Sigma + b.Sigma*b.Sigma)
	return distuv.UnitNormal.CDF((a.Mu - b.Mu) / c)
}

func vWin(t, e float64) float64 {
	x := t - e
	denom := distuv.UnitNormal.CDF(x)
	if denom < denomEpsilon {
		return -x
	}
	return distuv.UnitNormal.Prob(x) / denom
}

func wWin(t, e float64) float64 {
	x := t - e
	v := vWin(t, e)
	w := v * (v + x)
	if !(w > 0 && w < 1) {
		return 1
	}
	return w
}

func vDraw(t, e float64) float64 {
	abs := math.Abs(t)
	a, b := e-abs, -e-abs
	denom := distuv.UnitNormal.CDF(a) - distuv.UnitNormal.CDF(b)
	var v float64
	if denom < denomEpsilon {
		v = a
	} else {
		v = (distuv.UnitNormal.Prob(b) - distuv.UnitNormal.Prob(a)) / denom
	}
	if t < 0 {
		return -v
	}
	return v
}

func wDraw(t, e float64) float64 {
	abs := math.Abs(t)
	a, b := e-abs, -e-abs
	denom := distuv.UnitNormal.CDF(a) - distuv.UnitNormal.CDF(b)
	if denom < denomEpsilon {
		return 1
	}
	v := vDraw(abs, e)
	w := v*v + (a*distuv.UnitNormal.Prob(a)-b*distuv.UnitNormal.Prob(b))/denom
	if !(w > 0 && w < 1) {
		return 1
	}
	return w
}
