package nets

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/crease/internal/domain/innings"
	"github.com/okian/crease/internal/domain/types"
)

func row(rank int, handle string, runs, balls int) types.Entry {
	return types.Entry{Rank: rank, Handle: handle, Runs: runs, BallsFaced: balls}
}

func TestVerifyOrdering(t *testing.T) {
	Convey("Given leaderboard rows", t, func() {
		Convey("When they follow runs, then balls, then handle", func() {
			rows := []types.Entry{
				row(1, "amy", 24, 6),
				row(2, "bob", 18, 4),
				row(3, "cat", 18, 6),
				row(3, "dan", 18, 6),
				row(5, "eve", 0, 1),
			}

			Convey("Then they verify", func() {
				So(verifyOrdering(rows), ShouldBeNil)
			})
		})

		Convey("When fewer runs are listed first", func() {
			err := verifyOrdering([]types.Entry{row(1, "amy", 6, 6), row(2, "bob", 12, 6)})

			Convey("Then the mismatch is reported", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			})
		})

		Convey("When tied rows get different ranks", func() {
			err := verifyOrdering([]types.Entry{row(1, "amy", 6, 6), row(2, "bob", 6, 6)})

			Convey("Then the mismatch is reported", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			})
		})

		Convey("When ranks after a tie are dense instead of skipped", func() {
			err := verifyOrdering([]types.Entry{row(1, "amy", 6, 6), row(1, "bob", 6, 6), row(2, "cat", 4, 6)})

			Convey("Then the mismatch is reported", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			})
		})

		Convey("When there are no rows", func() {
			Convey("Then there is nothing to contradict", func() {
				So(verifyOrdering(nil), ShouldBeNil)
			})
		})
	})
}

func TestVerifyRanks(t *testing.T) {
	Convey("Given a batter whose best was 14 off 6", t, func() {
		results := []BatterResult{{Handle: "amy", Player: "virat", Best: innings.Summary{Runs: 14, BallsFaced: 6}}}

		Convey("Then a matching row verifies", func() {
			e := row(1, "amy", 14, 6)
			e.Player = "virat"
			So(verifyRanks(map[string]types.Entry{"amy": e}, results), ShouldBeNil)
			So(settled(map[string]types.Entry{"amy": e}, results), ShouldBeTrue)
		})

		Convey("Then a stale row does not", func() {
			e := row(1, "amy", 8, 6)
			e.Player = "virat"
			rows := map[string]types.Entry{"amy": e}
			So(errors.Is(verifyRanks(rows, results), ErrMismatch), ShouldBeTrue)
			So(settled(rows, results), ShouldBeFalse)
		})

		Convey("Then a missing row does not", func() {
			So(errors.Is(verifyRanks(map[string]types.Entry{}, results), ErrMismatch), ShouldBeTrue)
		})

		Convey("Then a row for another player does not", func() {
			e := row(1, "amy", 14, 6)
			e.Player = "rohit"
			So(errors.Is(verifyRanks(map[string]types.Entry{"amy": e}, results), ErrMismatch), ShouldBeTrue)
		})
	})
}

func TestBetter(t *testing.T) {
	Convey("Given two innings", t, func() {
		So(better(20, 6, 18, 3), ShouldBeTrue)
		So(better(18, 3, 18, 6), ShouldBeTrue)
		So(better(18, 6, 18, 6), ShouldBeFalse)
		So(better(4, 1, 6, 6), ShouldBeFalse)
	})
}

func TestGestures(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a, b := NewGestures(5), NewGestures(5)

		Convey("Then they produce the same stream", func() {
			for i := 0; i < 50; i++ {
				So(a.Next(), ShouldResemble, b.Next())
			}
		})

		Convey("Then every gesture is a short tap or an upward swipe", func() {
			for i := 0; i < 500; i++ {
				g := a.Next()
				length := math.Hypot(g.EndX-g.StartX, g.EndY-g.StartY)
				if length > 30 {
					So(g.EndY, ShouldBeLessThan, g.StartY)
					So(length, ShouldBeGreaterThanOrEqualTo, minLift)
				} else {
					So(length, ShouldBeLessThan, 5)
				}
			}
		})
	})

	Convey("Given fresh handles", t, func() {
		h1, h2 := newHandle(), newHandle()

		Convey("Then they fit the handle limit and differ", func() {
			So(h1, ShouldStartWith, handlePrefix)
			So(len(h1), ShouldBeLessThanOrEqualTo, 32)
			So(h1, ShouldNotEqual, h2)
		})
	})
}

func TestEventsURL(t *testing.T) {
	Convey("Given base URLs", t, func() {
		u, err := EventsURL("http://localhost:9080", "abc")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "ws://localhost:9080/sessions/abc/events")

		u, err = EventsURL("https://nets.example.com/game/", "abc")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "wss://nets.example.com/game/sessions/abc/events")

		_, err = EventsURL("://", "abc")
		So(err, ShouldNotBeNil)
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given an empty config", t, func() {
		c := &Config{}
		c.Normalize()

		Convey("Then defaults are filled in", func() {
			So(c.BaseURL, ShouldEqual, DefaultBaseURL)
			So(c.Batters, ShouldEqual, DefaultBatters)
			So(c.Innings, ShouldEqual, DefaultInnings)
			So(c.Timeout, ShouldEqual, DefaultTimeout)
			So(c.Settle, ShouldEqual, DefaultSettle)
		})
	})
}
