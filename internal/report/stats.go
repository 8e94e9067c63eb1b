package report

import (
	"math"

	"github.com/okian/league/internal/domain/model"
)

// maxEloDifference bounds the Elo estimate for one-sided tallies.
const maxEloDifference = 800.0

// Stats are classic match statistics over a tally.
type Stats struct {
	// Score is (wins + draws/2) / games.
	Score float64 `json:"score"`
	// EloDifference is the rating gap implied by Score.
	EloDifference float64 `json:"elo_difference"`
	// LOS is the likelihood of superiority.
	LOS float64 `json:"los"`
}

// Compute derives Stats from t. An empty tally yields even statistics.
func Compute(t model.Tally) Stats {
	games := t.Games()
	if games == 0 {
		return Stats{Score: 0.5, LOS: 0.5}
	}
	score := (float64(t.Wins) + 0.5*float64(t.Draws)) / float64(games)

	elo := -math.Log(1/score-1) * 400 / math.Ln10
	switch {
	case math.IsInf(elo, 1) || elo > maxEloDifference:
		elo = maxEloDifference
	case math.IsInf(elo, -1) || elo < -maxEloDifference:
		elo = -maxEloDifference
	}

	los := 0.5
	if decisive := t.Wins + t.Losses; decisive > 0 {
		los = 0.5 + 0.5*math.Erf(float64(t.Wins-t.Losses)/math.Sqrt(2*float64(decisive)))
	}
	return Stats{Score: score, EloDifference: elo, LOS: los}
}
