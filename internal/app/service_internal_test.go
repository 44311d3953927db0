package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	eventqueue "github.com/okian/crease/internal/adapters/mq/queue"
	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/shot"
	. "github.com/smartystreets/goconvey/convey"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type dotSource struct{}

func (dotSource) Float64() float64 { return 0.5 }

type dotFlight struct{}

func (dotFlight) Simulate(shot.Launch) shot.Trajectory { return shot.Trajectory{Distance: 3} }

var drive = model.SwipeGesture{StartX: 100, StartY: 300, EndX: 100, EndY: 100}

func TestService_Sweep(t *testing.T) {
	Convey("Given a service with a manual clock", t, func() {
		ctx := context.Background()
		clock := &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		svc := New(WithClock(clock.Now), WithSessionTTL(time.Minute))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		idle, err := svc.StartSession(ctx, "virat", "idle")
		So(err, ShouldBeNil)
		clock.Add(45 * time.Second)
		busy, err := svc.StartSession(ctx, "rohit", "busy")
		So(err, ShouldBeNil)

		Convey("When the idle one passes its TTL", func() {
			clock.Add(30 * time.Second)
			svc.sweep(ctx)

			Convey("Then only the idle session expires", func() {
				_, err := svc.Session(ctx, idle.ID)
				So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
				_, err = svc.Session(ctx, busy.ID)
				So(err, ShouldBeNil)
			})
		})

		Convey("When a session was touched recently", func() {
			clock.Add(30 * time.Second)
			_, err := svc.Session(ctx, idle.ID)
			So(err, ShouldBeNil)
			clock.Add(30 * time.Second)
			svc.sweep(ctx)

			Convey("Then it survives the sweep", func() {
				_, err := svc.Session(ctx, idle.ID)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose result queue is full", t, func() {
		ctx := context.Background()
		svc := New(WithAutoAdvance(true), WithRandomSource(dotSource{}), WithFlightModel(dotFlight{}))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		full := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(1))
		So(full.Enqueue(ctx, model.InningsResult{Handle: "filler", BallsFaced: 1}), ShouldBeNil)
		svc.queue = full

		v, err := svc.StartSession(ctx, "virat", "patient")
		So(err, ShouldBeNil)
		for i := 0; i < model.BallsPerInnings; i++ {
			_, err := svc.Swipe(ctx, v.ID, "", drive)
			So(err, ShouldBeNil)
		}

		Convey("When the session is ended", func() {
			err := svc.EndSession(ctx, v.ID)

			Convey("Then it is refused and the session is kept", func() {
				So(errors.Is(err, ErrBackpressure), ShouldBeTrue)
				_, err := svc.Session(ctx, v.ID)
				So(err, ShouldBeNil)
			})
		})

		Convey("When a reset is attempted", func() {
			_, err := svc.Reset(ctx, v.ID, "")

			Convey("Then the finished innings is not discarded", func() {
				So(errors.Is(err, ErrBackpressure), ShouldBeTrue)
				got, err := svc.Session(ctx, v.ID)
				So(err, ShouldBeNil)
				So(got.Phase, ShouldEqual, model.InningsOver)
			})
		})

		Convey("When the queue drains", func() {
			<-full.Dequeue(ctx)

			Convey("Then the result is queued exactly once and the session can end", func() {
				So(svc.EndSession(ctx, v.ID), ShouldBeNil)
				So(full.Len(ctx), ShouldEqual, 1)
				r := <-full.Dequeue(ctx)
				So(r.Handle, ShouldEqual, "patient")
				So(r.Runs, ShouldEqual, 0)
				So(r.BallsFaced, ShouldEqual, model.BallsPerInnings)
			})
		})
	})
}
