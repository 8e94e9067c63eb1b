package repository

import (
	"fmt"
	"strings"

	"github.com/okian/league/internal/domain/model"
)

func validateCompetitor(c model.Competitor) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCompetitor)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q has kind %q", ErrInvalidCompetitor, c.Name, c.Kind)
	}
	if err := c.Rating.Validate(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidCompetitor, c.Name, err)
	}
	return nil
}

func validateBatch(challenger, defender model.Competitor, rec model.MatchRecord) error {
	if err := validateCompetitor(challenger); err != nil {
		return err
	}
	if err := validateCompetitor(defender); err != nil {
		return err
	}
	switch {
	case rec.Challenger != challenger.Name || rec.Defender != defender.Name:
		return fmt.Errorf("%w: record %s vs %s does not match %s vs %s",
			ErrInvalidRecord, rec.Challenger, rec.Defender, challenger.Name, defender.Name)
	case challenger.Name == defender.Name:
		return fmt.Errorf("%w: %q cannot play itself", ErrInvalidRecord, challenger.Name)
	case rec.Wins < 0 || rec.Draws < 0 || rec.Losses < 0 || rec.Games() == 0:
		return fmt.Errorf("%w: tally %+v", ErrInvalidRecord, rec.Tally)
	}
	return nil
}

// assignRanksWithTies assigns ranks with proper tie handling.
// Competitors with the same score share a rank and the next rank
// follows consecutively.
func assignRanksWithTies(entries []Entry) {
	currentRank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			currentRank++
		}
		entries[i].Rank = currentRank
	}
}
