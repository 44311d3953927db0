package service_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/crease/internal/adapters/ws"
	service "github.com/okian/crease/internal/app"
	"github.com/okian/crease/internal/domain/innings"
	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
	"github.com/okian/crease/internal/domain/types"
	"github.com/okian/crease/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// half always draws 0.5: the bat connects and no edge is taken.
type half struct{}

func (half) Float64() float64 { return 0.5 }

type fixedFlight shot.Trajectory

func (f fixedFlight) Simulate(shot.Launch) shot.Trajectory { return shot.Trajectory(f) }

var (
	flick  = model.SwipeGesture{StartX: 200, StartY: 400, EndX: 200, EndY: 250}
	tap    = model.SwipeGesture{StartX: 200, StartY: 400, EndX: 205, EndY: 395}
	single = fixedFlight{Distance: 12}
	six    = fixedFlight{Distance: 60, Apex: 4}
)

func nan() float64 { return math.NaN() }

func newStarted(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func waitForRank(ctx context.Context, svc *service.Service, handle string) (types.Entry, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		e, err := svc.Rank(ctx, handle)
		if err == nil || time.Now().After(deadline) {
			return e, err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then both default batters are selectable in key order", func() {
			players := svc.Players()
			So(len(players), ShouldEqual, 2)
			So(players[0].Key, ShouldEqual, "rohit")
			So(players[1].Key, ShouldEqual, "virat")
			So(players[1].Technique, ShouldEqual, 98)
		})

		Convey("Then session operations wait for Start", func() {
			_, err := svc.StartSession(context.Background(), "virat", "ace")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a new service with custom players", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithPlayers([]model.PlayerProfile{{Key: "net", Name: "Net Bowler", Power: 50, Technique: 50, Timing: 50}}),
		)

		Convey("Then only those players are offered", func() {
			So(len(svc.Players()), ShouldEqual, 1)
			So(svc.Players()[0].Key, ShouldEqual, "net")
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)
			defer svc.Stop()

			Convey("Then it should be marked as started", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["activeSessions"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_StartSession(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newStarted(service.WithMaxSessions(2))
		defer svc.Stop()

		Convey("When a session starts", func() {
			v, err := svc.StartSession(ctx, "virat", "  ace  ")

			Convey("Then it awaits the first swipe with a full over", func() {
				So(err, ShouldBeNil)
				So(v.ID, ShouldNotBeBlank)
				So(v.Handle, ShouldEqual, "ace")
				So(v.Player.Name, ShouldEqual, "Virat Kohli")
				So(v.Phase, ShouldEqual, model.AwaitingSwipe)
				So(v.State.BallsRemaining, ShouldEqual, model.BallsPerInnings)
				So(v.LastDelivery, ShouldBeNil)
			})

			Convey("And it can be looked up", func() {
				got, err := svc.Session(ctx, v.ID)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, v.ID)
			})
		})

		Convey("When the player is unknown", func() {
			_, err := svc.StartSession(ctx, "bradman", "ace")

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, service.ErrUnknownPlayer), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the handle is blank or too long", func() {
			_, blank := svc.StartSession(ctx, "virat", "   ")
			_, long := svc.StartSession(ctx, "virat", "abcdefghijklmnopqrstuvwxyz0123456")

			Convey("Then both are invalid input", func() {
				So(errors.Is(blank, model.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(long, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When more sessions are opened than allowed", func() {
			_, err1 := svc.StartSession(ctx, "virat", "a")
			_, err2 := svc.StartSession(ctx, "rohit", "b")
			_, err3 := svc.StartSession(ctx, "rohit", "c")

			Convey("Then the extra one is refused", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(errors.Is(err3, service.ErrTooManySessions), ShouldBeTrue)
			})
		})

		Convey("When a session id is unknown", func() {
			_, err := svc.Session(ctx, "missing")

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Swipe(t *testing.T) {
	Convey("Given a session that always scores a single", t, func() {
		ctx := context.Background()
		svc := newStarted(service.WithRandomSource(half{}), service.WithFlightModel(single))
		defer svc.Stop()
		v, err := svc.StartSession(ctx, "rohit", "runner")
		So(err, ShouldBeNil)

		Convey("When a flick is played", func() {
			res, err := svc.Swipe(ctx, v.ID, "s1", flick)

			Convey("Then one run is scored and the delivery waits for presentation", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, types.SwipeDelivered)
				So(res.Delivery.Ball, ShouldEqual, 1)
				So(res.Delivery.Outcome.Kind, ShouldEqual, model.Run1)
				So(res.Delivery.Banner, ShouldEqual, "1 RUN")
				So(res.Session.Phase, ShouldEqual, model.DeliveryDone)
				So(res.Session.State.TotalRuns, ShouldEqual, 1)
			})

			Convey("And the same swipe id replays the delivery", func() {
				again, err := svc.Swipe(ctx, v.ID, "s1", flick)
				So(err, ShouldBeNil)
				So(again.Status, ShouldEqual, types.SwipeDuplicate)
				So(again.Delivery.Ball, ShouldEqual, 1)
				So(again.Session.State.BallsRemaining, ShouldEqual, 5)
			})

			Convey("And a new swipe before advancing is an illegal state", func() {
				_, err := svc.Swipe(ctx, v.ID, "s2", flick)
				So(errors.Is(err, model.ErrIllegalState), ShouldBeTrue)

				Convey("And the rejected id can be used once the phase moves on", func() {
					_, err := svc.Advance(ctx, v.ID)
					So(err, ShouldBeNil)
					res, err := svc.Swipe(ctx, v.ID, "s2", flick)
					So(err, ShouldBeNil)
					So(res.Status, ShouldEqual, types.SwipeDelivered)
					So(res.Delivery.Ball, ShouldEqual, 2)
				})
			})
		})

		Convey("When the gesture is a tap", func() {
			res, err := svc.Swipe(ctx, v.ID, "t1", tap)

			Convey("Then nothing is consumed", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, types.SwipeIgnored)
				So(res.Delivery, ShouldBeNil)
				So(res.Session.State.BallsRemaining, ShouldEqual, model.BallsPerInnings)
				So(res.Session.Phase, ShouldEqual, model.AwaitingSwipe)
			})
		})

		Convey("When swipes arrive without ids", func() {
			res, err := svc.Swipe(ctx, v.ID, "", flick)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, types.SwipeDelivered)
			_, err = svc.Advance(ctx, v.ID)
			So(err, ShouldBeNil)
			res, err = svc.Swipe(ctx, v.ID, "", flick)

			Convey("Then each is played and none takes a dedupe slot", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, types.SwipeDelivered)
				So(res.Delivery.Ball, ShouldEqual, 2)
				So(svc.GetStats()["dedupeEntries"], ShouldEqual, int64(0))
			})

			Convey("Then an id-carrying swipe is still tracked", func() {
				_, err := svc.Advance(ctx, v.ID)
				So(err, ShouldBeNil)
				_, err = svc.Swipe(ctx, v.ID, "s3", flick)
				So(err, ShouldBeNil)
				So(svc.GetStats()["dedupeEntries"], ShouldEqual, int64(1))
			})
		})

		Convey("When advancing with nothing to advance", func() {
			_, err := svc.Advance(ctx, v.ID)

			Convey("Then it is an illegal state", func() {
				So(errors.Is(err, model.ErrIllegalState), ShouldBeTrue)
			})
		})

		Convey("When the gesture has broken coordinates", func() {
			bad := flick
			bad.EndX = nan()
			_, err := svc.Swipe(ctx, v.ID, "", bad)

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_FullInnings(t *testing.T) {
	Convey("Given an auto-advancing session that hits sixes", t, func() {
		ctx := context.Background()
		svc := newStarted(
			service.WithAutoAdvance(true),
			service.WithRandomSource(half{}),
			service.WithFlightModel(six),
		)
		defer svc.Stop()
		v, err := svc.StartSession(ctx, "virat", "slogger")
		So(err, ShouldBeNil)

		Convey("When six deliveries are played", func() {
			var last types.SwipeResult
			for i := 0; i < model.BallsPerInnings; i++ {
				last, err = svc.Swipe(ctx, v.ID, "", flick)
				So(err, ShouldBeNil)
			}

			Convey("Then the innings is over at 36", func() {
				So(last.Session.Phase, ShouldEqual, model.InningsOver)
				So(last.Session.State.TotalRuns, ShouldEqual, 36)
				So(last.Session.State.IsOver, ShouldBeTrue)
			})

			Convey("And a seventh swipe is rejected", func() {
				_, err := svc.Swipe(ctx, v.ID, "", flick)
				So(errors.Is(err, model.ErrIllegalState), ShouldBeTrue)
			})

			Convey("And the scorecard reads like the end screen", func() {
				sc, err := svc.Scorecard(ctx, v.ID)
				So(err, ShouldBeNil)
				So(sc.Runs, ShouldEqual, 36)
				So(sc.Sixes, ShouldEqual, 6)
				So(sc.StrikeRate.String(), ShouldEqual, "600")
				So(sc.Message, ShouldEqual, "Phenomenal batting! You're the next superstar!")
				So(sc.ShareText, ShouldEqual, innings.ShareText(36))
			})

			Convey("And the innings reaches the leaderboard", func() {
				e, err := waitForRank(ctx, svc, "slogger")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
				So(e.Runs, ShouldEqual, 36)
				So(e.Player, ShouldEqual, "virat")
				So(e.StrikeRate.String(), ShouldEqual, "600")

				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
			})

			Convey("And a reset starts a fresh innings in the same session", func() {
				_, err := waitForRank(ctx, svc, "slogger")
				So(err, ShouldBeNil)

				r, err := svc.Reset(ctx, v.ID, "rohit")
				So(err, ShouldBeNil)
				So(r.Phase, ShouldEqual, model.AwaitingSwipe)
				So(r.Player.Key, ShouldEqual, "rohit")
				So(r.State.TotalRuns, ShouldEqual, 0)
				So(r.LastDelivery, ShouldBeNil)
			})
		})

		Convey("When reset names an unknown player", func() {
			_, err := svc.Swipe(ctx, v.ID, "", flick)
			So(err, ShouldBeNil)
			_, err = svc.Reset(ctx, v.ID, "bradman")

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				got, err := svc.Session(ctx, v.ID)
				So(err, ShouldBeNil)
				So(got.State.TotalRuns, ShouldEqual, 6)
				So(got.Player.Key, ShouldEqual, "virat")
			})
		})

		Convey("When the session is ended", func() {
			So(svc.EndSession(ctx, v.ID), ShouldBeNil)

			Convey("Then it is gone", func() {
				_, err := svc.Session(ctx, v.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.EndSession(ctx, v.ID), service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a subscriber to a session", t, func() {
		ctx := context.Background()
		svc := newStarted(service.WithRandomSource(half{}), service.WithFlightModel(single))
		defer svc.Stop()
		v, err := svc.StartSession(ctx, "virat", "watched")
		So(err, ShouldBeNil)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = svc.Subscribe(w, r, v.ID)
		}))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		var hello ws.Message
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		So(conn.ReadJSON(&hello), ShouldBeNil)

		Convey("When a delivery is played right after the hello", func() {
			_, err := svc.Swipe(ctx, v.ID, "w1", flick)
			So(err, ShouldBeNil)

			Convey("Then the hello snapshot precedes it and the delivery is streamed", func() {
				So(hello.Type, ShouldEqual, ws.TypeHello)
				So(hello.State.BallsRemaining, ShouldEqual, model.BallsPerInnings)

				var m ws.Message
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				So(conn.ReadJSON(&m), ShouldBeNil)
				So(m.Type, ShouldEqual, ws.TypeDelivery)
				So(m.Delivery.Ball, ShouldEqual, 1)
			})
		})
	})
}
