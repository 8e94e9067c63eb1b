package local

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBeats(t *testing.T) {
	Convey("Given the five moves", t, func() {
		Convey("Then the classic pairs hold", func() {
			So(Beats(Rock, Scissors), ShouldBeTrue)
			So(Beats(Rock, Lizard), ShouldBeTrue)
			So(Beats(Paper, Rock), ShouldBeTrue)
			So(Beats(Paper, Spock), ShouldBeTrue)
			So(Beats(Scissors, Paper), ShouldBeTrue)
			So(Beats(Scissors, Lizard), ShouldBeTrue)
			So(Beats(Spock, Rock), ShouldBeTrue)
			So(Beats(Lizard, Spock), ShouldBeTrue)
			So(Beats(Rock, Rock), ShouldBeFalse)
		})

		Convey("Then every move beats exactly two others and loses to two", func() {
			for a := 0; a < NumMoves; a++ {
				wins, losses := 0, 0
				for b := 0; b < NumMoves; b++ {
					if Beats(a, b) {
						wins++
					}
					if Beats(b, a) {
						losses++
					}
				}
				So(wins, ShouldEqual, 2)
				So(losses, ShouldEqual, 2)
			}
		})

		Convey("Then counterOf always beats its argument", func() {
			for m := 0; m < NumMoves; m++ {
				So(Beats(counterOf(m), m), ShouldBeTrue)
			}
		})

		Convey("Then moves have names", func() {
			So(MoveName(Spock), ShouldEqual, "spock")
			So(MoveName(-1), ShouldEqual, "none")
		})
	})
}

func TestBots(t *testing.T) {
	Convey("Given every built-in strategy", t, func() {
		names := Strategies()

		Convey("Then they are listed in order", func() {
			So(names, ShouldResemble, []string{"biasedAI", "counterAI", "cycleAI", "mirrorAI", "passiveAI", "randomAI"})
		})

		Convey("When each plays long random histories", func() {
			rng := rand.New(rand.NewSource(3))
			for _, name := range names {
				bot, ok := newBot(name)
				So(ok, ShouldBeTrue)

				var h history
				for round := 0; round < 200; round++ {
					m := mask(h.own)
					mv := bot.Move(h, m, rng)

					So(mv, ShouldBeBetweenOrEqual, 0, NumMoves-1)
					So(m[mv], ShouldBeTrue)
					h.own = append(h.own, mv)
					h.opp = append(h.opp, rng.Intn(NumMoves))
				}
			}
		})

		Convey("Then an unknown strategy is not built", func() {
			_, ok := newBot("lightRushAI")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestScriptedMoves(t *testing.T) {
	Convey("Given the passive bot", t, func() {
		bot, _ := newBot("passiveAI")
		rng := rand.New(rand.NewSource(1))

		Convey("Then it plays rock until the mask forbids it", func() {
			h := history{}
			So(bot.Move(h, mask(h.own), rng), ShouldEqual, Rock)
			h.own = []int{Rock, Rock}
			So(bot.Move(h, mask(h.own), rng), ShouldEqual, Paper)
		})
	})

	Convey("Given the counter bot", t, func() {
		bot, _ := newBot("counterAI")
		rng := rand.New(rand.NewSource(1))

		Convey("Then it answers the opponent's last move", func() {
			h := history{own: []int{Rock}, opp: []int{Scissors}}
			So(Beats(bot.Move(h, mask(h.own), rng), Scissors), ShouldBeTrue)
		})
	})
}
