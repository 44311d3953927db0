package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/pkg/logger"
)

func newTestHub(opts ...Option) *Hub {
	_ = logger.Init()
	return NewHub(opts...)
}

func dial(srv *httptest.Server, sessionID string) (*websocket.Conn, error) {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	return conn, err
}

func readMessage(conn *websocket.Conn) (Message, error) {
	var m Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&m)
	return m, err
}

func TestHub_Stream(t *testing.T) {
	Convey("Given a hub behind a test server", t, func() {
		h := newTestHub()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.URL.Query().Get("session")
			_ = h.Serve(w, r, id, Message{Type: TypeHello, SessionID: id, Phase: model.AwaitingSwipe})
		}))
		defer srv.Close()
		defer h.Close()

		conn, err := dial(srv, "s-1")
		So(err, ShouldBeNil)
		defer conn.Close()

		hello, err := readMessage(conn)
		So(err, ShouldBeNil)
		So(hello.Type, ShouldEqual, TypeHello)
		So(hello.Phase, ShouldEqual, model.AwaitingSwipe)

		Convey("When a delivery is published for the session", func() {
			out := model.NewOutcome(model.Four, 48, 0.1)
			h.Notify(context.Background(), model.DeliveryEvent{SessionID: "s-1", Ball: 1, Outcome: out, Cue: model.CueFour, Phase: model.DeliveryDone})

			Convey("Then the subscriber receives it", func() {
				m, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, TypeDelivery)
				So(m.Delivery, ShouldNotBeNil)
				So(m.Delivery.Outcome.Kind, ShouldEqual, model.Four)
				So(m.Delivery.Cue, ShouldEqual, model.CueFour)
			})
		})

		Convey("When another session publishes", func() {
			h.Publish(Message{Type: TypePhase, SessionID: "s-2", Phase: model.InningsOver})
			h.Publish(Message{Type: TypePhase, SessionID: "s-1", Phase: model.AwaitingSwipe})

			Convey("Then only its own session's events arrive", func() {
				m, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(m.SessionID, ShouldEqual, "s-1")
			})
		})

		Convey("When the session is closed", func() {
			h.CloseSession("s-1")

			Convey("Then the client is told and disconnected", func() {
				m, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, TypeSessionEnded)

				_, err = readMessage(conn)
				So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
				So(h.Subscribers("s-1"), ShouldEqual, 0)
			})
		})
	})
}

func TestHub_DropsSlowClients(t *testing.T) {
	Convey("Given a subscriber that never drains its buffer", t, func() {
		h := newTestHub(WithSendBuffer(1))
		c := &client{hub: h, sessionID: "s-1", send: make(chan Message, 1)}
		h.register(c)
		So(h.Subscribers("s-1"), ShouldEqual, 1)

		Convey("When more messages arrive than it can hold", func() {
			h.Publish(Message{Type: TypePhase, SessionID: "s-1"})
			h.Publish(Message{Type: TypePhase, SessionID: "s-1"})

			Convey("Then it is disconnected without blocking the publisher", func() {
				So(h.Subscribers("s-1"), ShouldEqual, 0)
				So(h.Count(), ShouldEqual, 0)

				_, open := <-c.send
				So(open, ShouldBeTrue)
				_, open = <-c.send
				So(open, ShouldBeFalse)
			})

			Convey("Then a late unregister is harmless", func() {
				So(func() { h.unregister(c) }, ShouldNotPanic)
			})
		})
	})
}

func TestHub_AcceptThenStart(t *testing.T) {
	Convey("Given a connection accepted but not yet started", t, func() {
		h := newTestHub()
		accepted := make(chan *Subscriber, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := h.Accept(w, r, r.URL.Query().Get("session"))
			if err == nil {
				accepted <- sub
			}
		}))
		defer srv.Close()
		defer h.Close()

		conn, err := dial(srv, "s-1")
		So(err, ShouldBeNil)
		defer conn.Close()
		sub := <-accepted

		Convey("When an event is published before Start", func() {
			h.Publish(Message{Type: TypePhase, SessionID: "s-1", Phase: model.DeliveryDone})
			So(h.Subscribers("s-1"), ShouldEqual, 0)

			sub.Start(Message{Type: TypeHello, SessionID: "s-1", Phase: model.DeliveryDone})
			h.Publish(Message{Type: TypePhase, SessionID: "s-1", Phase: model.AwaitingSwipe})

			Convey("Then the hello arrives first and only later events follow it", func() {
				hello, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(hello.Type, ShouldEqual, TypeHello)
				So(hello.Phase, ShouldEqual, model.DeliveryDone)

				next, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(next.Type, ShouldEqual, TypePhase)
				So(next.Phase, ShouldEqual, model.AwaitingSwipe)
				So(h.Subscribers("s-1"), ShouldEqual, 1)
			})
		})
	})
}
