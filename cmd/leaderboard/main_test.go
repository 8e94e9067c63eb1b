package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func seedDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "league.db")
	reg, err := repository.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = reg.Close() }()

	agent, _, err := reg.Upsert(ctx, model.NewLearned("agent.pt", rating.Rating{Mu: 30, Sigma: 2}))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	bot, _, err := reg.Upsert(ctx, model.NewScripted("randomAI", rating.Rating{Mu: 25, Sigma: 25.0 / 3}))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := reg.CommitBatch(ctx, agent, bot, model.MatchRecord{
		Challenger: agent.Name, Defender: bot.Name, Tally: model.Tally{Wins: 3, Losses: 1},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	convey.Convey("Given a league database with one played batch", t, func() {
		ctx := context.Background()
		db := seedDB(t)

		convey.Convey("When the leaderboard is printed", func() {
			var out bytes.Buffer
			err := run(ctx, []string{"-db", db}, &out)

			convey.Convey("Then both competitors are listed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "agent.pt")
				convey.So(out.String(), convey.ShouldContainSubstring, "randomAI")
			})
		})

		convey.Convey("When only the top entry is requested", func() {
			var out bytes.Buffer
			err := run(ctx, []string{"-db", db, "-limit", "1"}, &out)

			convey.Convey("Then the weaker competitor is left out", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "agent.pt")
				convey.So(out.String(), convey.ShouldNotContainSubstring, "randomAI")
			})
		})

		convey.Convey("When history is requested", func() {
			var out bytes.Buffer
			err := run(ctx, []string{"-db", db, "-history", "agent.pt"}, &out)
			missing := run(ctx, []string{"-db", db, "-history", "ghost"}, &bytes.Buffer{})

			convey.Convey("Then the opponent row is printed and unknown names fail", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "randomAI")
				convey.So(out.String(), convey.ShouldContainSubstring, "QUALITY")
				convey.So(errors.Is(missing, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the API is served until the context ends", func() {
			sctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
			err := run(sctx, []string{"-db", db, "-serve", "-addr", "127.0.0.1:0"}, &bytes.Buffer{})

			convey.Convey("Then the server shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the listen address is invalid", func() {
			err := run(ctx, []string{"-db", db, "-serve", "-addr", "127.0.0.1:notaport"}, &bytes.Buffer{})

			convey.Convey("Then serving fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
