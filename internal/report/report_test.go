package report_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/internal/report"
	. "github.com/smartystreets/goconvey/convey"
)

func seed(ctx context.Context, reg repository.Registry, cs ...model.Competitor) map[string]model.Competitor {
	out := make(map[string]model.Competitor, len(cs))
	for _, c := range cs {
		stored, _, err := reg.Upsert(ctx, c)
		if err != nil {
			panic(err)
		}
		out[c.Name] = stored
	}
	return out
}

func commit(ctx context.Context, reg repository.Registry, c, d model.Competitor, t model.Tally) {
	if _, err := reg.CommitBatch(ctx, c, d, model.MatchRecord{Challenger: c.Name, Defender: d.Name, Tally: t}); err != nil {
		panic(err)
	}
}

func TestLeaderboard(t *testing.T) {
	Convey("Given three rated competitors", t, func() {
		ctx := context.Background()
		reg := repository.NewTreapStore()
		seed(ctx, reg,
			model.NewScripted("x", rating.Rating{Mu: 30, Sigma: 2}),
			model.NewLearned("y.pt", rating.Rating{Mu: 28, Sigma: 1}),
			model.NewScripted("z", rating.Rating{Mu: 25, Sigma: 8.33}),
		)
		r := report.New(reg)

		Convey("When the leaderboard is read", func() {
			rows, err := r.Leaderboard(ctx)

			Convey("Then rows follow mu - 3*sigma", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)
				So(rows[0].Name, ShouldEqual, "y.pt")
				So(rows[0].Kind, ShouldEqual, model.KindLearned)
				So(rows[0].Conservative, ShouldAlmostEqual, 25, 1e-9)
				So(rows[1].Name, ShouldEqual, "x")
				So(rows[1].Conservative, ShouldAlmostEqual, 24, 1e-9)
				So(rows[2].Name, ShouldEqual, "z")
				So(rows[2].Conservative, ShouldAlmostEqual, 0.01, 1e-9)
				So(rows[2].Rank, ShouldEqual, 3)
			})

			Convey("Then the table shows every name", func() {
				out := report.RenderLeaderboard(rows)
				So(out, ShouldContainSubstring, "MU-3SIGMA")
				for _, name := range []string{"y.pt", "x", "z"} {
					So(out, ShouldContainSubstring, name)
				}
				So(out, ShouldContainSubstring, "25.000")
			})
		})

		Convey("When the top row is read", func() {
			rows, err := r.Top(ctx, 1)

			Convey("Then only the leader comes back", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Name, ShouldEqual, "y.pt")
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := r.Top(ctx, 0)

			Convey("Then ErrInvalidLimit is returned", func() {
				So(errors.Is(err, report.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty league", t, func() {
		rows, err := report.New(repository.NewTreapStore()).Leaderboard(context.Background())

		Convey("Then the leaderboard is empty", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})
	})
}

func TestMatchHistory(t *testing.T) {
	Convey("Given a challenger with several batches", t, func() {
		ctx := context.Background()
		reg := repository.NewTreapStore()
		fresh := rating.Rating{Mu: 25, Sigma: 25.0 / 3}
		cs := seed(ctx, reg,
			model.NewLearned("agent.pt", fresh),
			model.NewScripted("randomAI", fresh),
			model.NewScripted("passiveAI", fresh),
		)
		commit(ctx, reg, cs["agent.pt"], cs["randomAI"], model.Tally{Wins: 3, Losses: 2})
		commit(ctx, reg, cs["agent.pt"], cs["randomAI"], model.Tally{Wins: 2, Draws: 2, Losses: 1})
		commit(ctx, reg, cs["agent.pt"], cs["passiveAI"], model.Tally{Wins: 5})
		commit(ctx, reg, cs["randomAI"], cs["agent.pt"], model.Tally{Losses: 4})
		r := report.New(reg)

		Convey("When the history is read", func() {
			hist, err := r.MatchHistory(ctx, "agent.pt")

			Convey("Then batches are summed per defender", func() {
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 2)
				So(hist[0].Opponent, ShouldEqual, "passiveAI")
				So(hist[0].Tally, ShouldResemble, model.Tally{Wins: 5})
				So(hist[1].Opponent, ShouldEqual, "randomAI")
				So(hist[1].Tally, ShouldResemble, model.Tally{Wins: 5, Draws: 2, Losses: 3})
			})

			Convey("Then statistics are attached", func() {
				So(hist[1].Score, ShouldAlmostEqual, 0.6, 1e-9)
				So(hist[1].EloDifference, ShouldAlmostEqual, 70.4365, 1e-3)
				So(hist[1].LOS, ShouldAlmostEqual, 0.76025, 1e-4)
				So(hist[0].EloDifference, ShouldEqual, 800)
				So(hist[1].DrawChance, ShouldBeBetween, 0, 1)
			})

			Convey("Then predictions come from the current ratings", func() {
				// equal fresh ratings: sqrt(2*beta^2 / (2*beta^2 + 2*sigma^2)) = sqrt(0.2)
				So(hist[1].Quality, ShouldAlmostEqual, math.Sqrt(0.2), 1e-9)
				So(hist[1].WinChance, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("Then the table shows each opponent", func() {
				out := report.RenderHistory("agent.pt", hist)
				So(out, ShouldContainSubstring, "agent.pt")
				So(out, ShouldContainSubstring, "passiveAI")
				So(strings.Count(out, "randomAI"), ShouldEqual, 1)
				So(out, ShouldContainSubstring, "QUALITY")
				So(out, ShouldContainSubstring, "0.447")
			})
		})

		Convey("When the league uses a wider performance spread", func() {
			m, err := rating.New(rating.WithBeta(25.0 / 3))
			So(err, ShouldBeNil)
			wide, err := report.New(reg, report.WithModel(m)).MatchHistory(ctx, "agent.pt")
			So(err, ShouldBeNil)
			narrow, err := r.MatchHistory(ctx, "agent.pt")
			So(err, ShouldBeNil)

			Convey("Then quality and the draw prediction follow the model", func() {
				So(wide[1].Quality, ShouldAlmostEqual, math.Sqrt(0.5), 1e-9)
				So(wide[1].DrawChance, ShouldNotAlmostEqual, narrow[1].DrawChance, 1e-6)
			})
		})

		Convey("When a competitor never challenged", func() {
			hist, err := r.MatchHistory(ctx, "passiveAI")

			Convey("Then the history is empty", func() {
				So(err, ShouldBeNil)
				So(hist, ShouldBeEmpty)
			})
		})

		Convey("When the name is unknown", func() {
			_, err := r.MatchHistory(ctx, "ghost")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestCompute(t *testing.T) {
	Convey("Given edge tallies", t, func() {
		Convey("Then an empty tally is even", func() {
			s := report.Compute(model.Tally{})
			So(s.Score, ShouldEqual, 0.5)
			So(s.EloDifference, ShouldEqual, 0)
			So(s.LOS, ShouldEqual, 0.5)
		})

		Convey("Then all draws are even", func() {
			s := report.Compute(model.Tally{Draws: 4})
			So(s.Score, ShouldEqual, 0.5)
			So(s.EloDifference, ShouldAlmostEqual, 0, 1e-9)
			So(s.LOS, ShouldEqual, 0.5)
		})

		Convey("Then a clean sweep of losses is bounded", func() {
			s := report.Compute(model.Tally{Losses: 3})
			So(s.EloDifference, ShouldEqual, -800)
			So(s.LOS, ShouldBeLessThan, 0.05)
		})
	})
}
