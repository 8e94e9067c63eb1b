package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type registryFactory func(t *testing.T) repository.Registry

func registries() map[string]registryFactory {
	return map[string]registryFactory{
		"treap": func(t *testing.T) repository.Registry {
			return repository.NewTreapStore(repository.WithClock(func() time.Time { return fixedNow }))
		},
		"sqlite": func(t *testing.T) repository.Registry {
			path := filepath.Join(t.TempDir(), "league.db")
			s, err := repository.OpenSQLite(context.Background(), path,
				repository.WithClock(func() time.Time { return fixedNow }))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		},
	}
}

func fresh() rating.Rating { return rating.Rating{Mu: 25, Sigma: 25.0 / 3} }

func TestRegistry_Upsert(t *testing.T) {
	for name, factory := range registries() {
		Convey("Given an empty "+name+" registry", t, func() {
			ctx := context.Background()
			reg := factory(t)
			defer func() { _ = reg.Close() }()

			Convey("When agent.pt is registered twice", func() {
				first, created, err := reg.Upsert(ctx, model.NewLearned("agent.pt", fresh()))
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)

				_, err = reg.CommitBatch(ctx,
					model.NewLearned("agent.pt", rating.Rating{Mu: 29, Sigma: 7}),
					mustUpsert(ctx, reg, model.NewScripted("randomAI", fresh())),
					model.MatchRecord{Challenger: "agent.pt", Defender: "randomAI", Tally: model.Tally{Wins: 1}})
				So(err, ShouldBeNil)

				again, created, err := reg.Upsert(ctx, model.NewLearned("agent.pt", fresh()))

				Convey("Then the second call keeps the earned rating", func() {
					So(err, ShouldBeNil)
					So(created, ShouldBeFalse)
					So(first.Rating, ShouldResemble, fresh())
					So(again.Rating, ShouldResemble, rating.Rating{Mu: 29, Sigma: 7})
					So(again.Kind, ShouldEqual, model.KindLearned)
					n, _ := reg.Count(ctx)
					So(n, ShouldEqual, 2)
				})
			})

			Convey("When the competitor is invalid", func() {
				_, _, errName := reg.Upsert(ctx, model.NewScripted("", fresh()))
				_, _, errSigma := reg.Upsert(ctx, model.NewScripted("bad", rating.Rating{Mu: 25, Sigma: 0}))
				_, _, errKind := reg.Upsert(ctx, model.Competitor{Name: "x", Kind: "robot", Rating: fresh()})

				Convey("Then it is rejected", func() {
					So(errors.Is(errName, repository.ErrInvalidCompetitor), ShouldBeTrue)
					So(errors.Is(errSigma, repository.ErrInvalidCompetitor), ShouldBeTrue)
					So(errors.Is(errSigma, rating.ErrInvalidRating), ShouldBeTrue)
					So(errors.Is(errKind, repository.ErrInvalidCompetitor), ShouldBeTrue)
				})
			})

			Convey("When an unknown name is looked up", func() {
				_, err := reg.Get(ctx, "ghost")
				_, histErr := reg.History(ctx, "ghost")

				Convey("Then ErrNotFound is returned", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					So(errors.Is(histErr, repository.ErrNotFound), ShouldBeTrue)
				})
			})
		})
	}
}

func TestRegistry_CommitBatch(t *testing.T) {
	for name, factory := range registries() {
		Convey("Given a "+name+" registry with two bots", t, func() {
			ctx := context.Background()
			reg := factory(t)
			defer func() { _ = reg.Close() }()
			a := mustUpsert(ctx, reg, model.NewScripted("scriptA", fresh()))
			b := mustUpsert(ctx, reg, model.NewScripted("scriptB", fresh()))

			has, err := reg.HasHistory(ctx)
			So(err, ShouldBeNil)
			So(has, ShouldBeFalse)

			Convey("When a batch is committed", func() {
				a.Rating = rating.Rating{Mu: 27, Sigma: 7}
				b.Rating = rating.Rating{Mu: 23, Sigma: 7}
				rec, err := reg.CommitBatch(ctx, a, b, model.MatchRecord{
					RunID: "run-1", Challenger: "scriptA", Defender: "scriptB",
					Tally: model.Tally{Wins: 1, Draws: 1},
				})

				Convey("Then ratings and the record are stored together", func() {
					So(err, ShouldBeNil)
					So(rec.ID, ShouldBeGreaterThan, 0)
					gotA, _ := reg.Get(ctx, "scriptA")
					gotB, _ := reg.Get(ctx, "scriptB")
					So(gotA.Rating, ShouldResemble, a.Rating)
					So(gotB.Rating, ShouldResemble, b.Rating)

					hist, err := reg.History(ctx, "scriptA")
					So(err, ShouldBeNil)
					So(len(hist), ShouldEqual, 1)
					So(hist[0].Defender, ShouldEqual, "scriptB")
					So(hist[0].RunID, ShouldEqual, "run-1")
					So(hist[0].Tally, ShouldResemble, model.Tally{Wins: 1, Draws: 1})
					So(hist[0].CreatedAt.Equal(fixedNow), ShouldBeTrue)

					defHist, _ := reg.History(ctx, "scriptB")
					So(defHist, ShouldBeEmpty)

					has, _ := reg.HasHistory(ctx)
					So(has, ShouldBeTrue)
				})
			})

			Convey("When the defender does not exist", func() {
				ghost := model.NewScripted("ghost", fresh())
				_, err := reg.CommitBatch(ctx, a, ghost, model.MatchRecord{
					Challenger: "scriptA", Defender: "ghost", Tally: model.Tally{Wins: 1},
				})

				Convey("Then nothing is written", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					has, _ := reg.HasHistory(ctx)
					So(has, ShouldBeFalse)
				})
			})

			Convey("When the record is malformed", func() {
				_, errEmpty := reg.CommitBatch(ctx, a, b, model.MatchRecord{Challenger: "scriptA", Defender: "scriptB"})
				_, errNames := reg.CommitBatch(ctx, a, b, model.MatchRecord{Challenger: "scriptB", Defender: "scriptA", Tally: model.Tally{Wins: 1}})

				Convey("Then it is rejected", func() {
					So(errors.Is(errEmpty, repository.ErrInvalidRecord), ShouldBeTrue)
					So(errors.Is(errNames, repository.ErrInvalidRecord), ShouldBeTrue)
				})
			})
		})
	}
}

func TestRegistry_Standings(t *testing.T) {
	for name, factory := range registries() {
		Convey("Given a "+name+" registry with three competitors", t, func() {
			ctx := context.Background()
			reg := factory(t)
			defer func() { _ = reg.Close() }()
			mustUpsert(ctx, reg, model.NewScripted("x", rating.Rating{Mu: 30, Sigma: 2}))
			mustUpsert(ctx, reg, model.NewScripted("y", rating.Rating{Mu: 28, Sigma: 1}))
			mustUpsert(ctx, reg, model.NewScripted("z", rating.Rating{Mu: 25, Sigma: 8.33}))

			Convey("When reading the standings", func() {
				entries, err := reg.Standings(ctx, 10)

				Convey("Then they are ordered by mu - 3*sigma", func() {
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 3)
					So(entries[0].Competitor.Name, ShouldEqual, "y")
					So(entries[0].Score, ShouldAlmostEqual, 25, 1e-9)
					So(entries[1].Competitor.Name, ShouldEqual, "x")
					So(entries[1].Score, ShouldAlmostEqual, 24, 1e-9)
					So(entries[2].Competitor.Name, ShouldEqual, "z")
					So(entries[2].Score, ShouldAlmostEqual, 0.01, 1e-9)
					So([]int{entries[0].Rank, entries[1].Rank, entries[2].Rank}, ShouldResemble, []int{1, 2, 3})
				})
			})

			Convey("When the limit is smaller than the roster", func() {
				entries, err := reg.Standings(ctx, 1)

				Convey("Then only the leader is returned", func() {
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 1)
					So(entries[0].Competitor.Name, ShouldEqual, "y")
				})
			})

			Convey("When the limit is not positive", func() {
				_, err := reg.Standings(ctx, 0)

				Convey("Then ErrInvalidLimit is returned", func() {
					So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
				})
			})

			Convey("When listing", func() {
				list, err := reg.List(ctx)

				Convey("Then competitors come back by name", func() {
					So(err, ShouldBeNil)
					So([]string{list[0].Name, list[1].Name, list[2].Name}, ShouldResemble, []string{"x", "y", "z"})
				})
			})
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	Convey("Given a sqlite file with a committed batch", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "league.db")
		reg, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		a := mustUpsert(ctx, reg, model.NewLearned("agent.pt", fresh()))
		b := mustUpsert(ctx, reg, model.NewScripted("randomAI", fresh()))
		a.Rating.Mu = 26
		_, err = reg.CommitBatch(ctx, a, b, model.MatchRecord{Challenger: "agent.pt", Defender: "randomAI", Tally: model.Tally{Wins: 5}})
		So(err, ShouldBeNil)
		So(reg.Close(), ShouldBeNil)

		Convey("When the file is reopened", func() {
			again, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = again.Close() }()

			Convey("Then the league state survives", func() {
				got, err := again.Get(ctx, "agent.pt")
				So(err, ShouldBeNil)
				So(got.Rating.Mu, ShouldEqual, 26)
				So(got.Kind, ShouldEqual, model.KindLearned)
				has, _ := again.HasHistory(ctx)
				So(has, ShouldBeTrue)
			})
		})
	})
}

func mustUpsert(ctx context.Context, reg repository.Registry, c model.Competitor) model.Competitor {
	stored, _, err := reg.Upsert(ctx, c)
	if err != nil {
		panic(err)
	}
	return stored
}

func TestSnapshot(t *testing.T) {
	Convey("Given a sqlite registry with two committed batches", t, func() {
		ctx := context.Background()
		src := registries()["sqlite"](t)
		defer func() { _ = src.Close() }()
		a := mustUpsert(ctx, src, model.NewScripted("scriptA", fresh()))
		b := mustUpsert(ctx, src, model.NewLearned("agent.pt", fresh()))
		a.Rating = rating.Rating{Mu: 27, Sigma: 7}
		b.Rating = rating.Rating{Mu: 23, Sigma: 7}
		_, err := src.CommitBatch(ctx, a, b, model.MatchRecord{RunID: "r", Challenger: "scriptA", Defender: "agent.pt", Tally: model.Tally{Wins: 2}})
		So(err, ShouldBeNil)
		_, err = src.CommitBatch(ctx, b, a, model.MatchRecord{RunID: "r", Challenger: "agent.pt", Defender: "scriptA", Tally: model.Tally{Losses: 1, Draws: 1}})
		So(err, ShouldBeNil)

		Convey("When it is copied into memory", func() {
			snap, err := repository.Snapshot(ctx, src)
			So(err, ShouldBeNil)

			Convey("Then competitors, ratings and records match", func() {
				has, _ := snap.HasHistory(ctx)
				So(has, ShouldBeTrue)
				gotA, err := snap.Get(ctx, "scriptA")
				So(err, ShouldBeNil)
				So(gotA.Rating, ShouldResemble, a.Rating)
				gotB, _ := snap.Get(ctx, "agent.pt")
				So(gotB.Kind, ShouldEqual, model.KindLearned)
				hist, _ := snap.History(ctx, "agent.pt")
				So(len(hist), ShouldEqual, 1)
				So(hist[0].Tally, ShouldResemble, model.Tally{Losses: 1, Draws: 1})
				top, err := snap.Standings(ctx, 1)
				So(err, ShouldBeNil)
				So(top[0].Competitor.Name, ShouldEqual, "scriptA")
			})

			Convey("Then writes to the copy leave the source alone", func() {
				gotA, _ := snap.Get(ctx, "scriptA")
				gotB, _ := snap.Get(ctx, "agent.pt")
				gotA.Rating = rating.Rating{Mu: 40, Sigma: 1}
				_, err := snap.CommitBatch(ctx, gotA, gotB, model.MatchRecord{Challenger: "scriptA", Defender: "agent.pt", Tally: model.Tally{Wins: 1}})
				So(err, ShouldBeNil)
				srcA, _ := src.Get(ctx, "scriptA")
				So(srcA.Rating, ShouldResemble, a.Rating)
				srcHist, _ := src.History(ctx, "scriptA")
				So(len(srcHist), ShouldEqual, 1)
			})
		})
	})
}
