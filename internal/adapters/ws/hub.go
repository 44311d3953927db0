// Package ws streams session events to presentation and audio clients over
// websockets.
package ws

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/pkg/logger"
	"github.com/okian/crease/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 4096

	defaultSendBuffer = 32
)

// Message types.
const (
	TypeHello        = "hello"
	TypeDelivery     = "delivery"
	TypePhase        = "phase"
	TypeReset        = "reset"
	TypeSessionEnded = "session_ended"
)

// Message is one frame on the event stream.
type Message struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id"`
	Phase     model.Phase          `json:"phase,omitempty"`
	Delivery  *model.DeliveryEvent `json:"delivery,omitempty"`
	State     *model.InningsState  `json:"state,omitempty"`
}

type client struct {
	hub       *Hub
	sessionID string
	conn      *websocket.Conn
	send      chan Message
}

// Hub fans session events out to subscribed connections. Publishing never
// blocks: a client whose buffer is full is disconnected.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]map[*client]struct{}
	count      int
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*client]struct{}),
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}
	return h
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// Subscriber is an upgraded connection that has not joined its session yet.
type Subscriber struct {
	c *client
}

// Accept upgrades the request for sessionID. Nothing published before Start
// reaches the connection.
func (h *Hub) Accept(w http.ResponseWriter, r *http.Request, sessionID string) (*Subscriber, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Subscriber{c: &client{hub: h, sessionID: sessionID, conn: conn, send: make(chan Message, h.sendBuffer)}}, nil
}

// Start queues hello as the first frame and joins the session. Callers that
// take hello from state they lock must hold that lock until Start returns, so
// no later event slips in between.
func (s *Subscriber) Start(hello Message) {
	c := s.c
	c.send <- hello
	c.hub.register(c)

	go c.writePump()
	go c.readPump()
}

// Serve upgrades the request and subscribes the connection to sessionID.
// hello is the first message written to the client.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, hello Message) error {
	sub, err := h.Accept(w, r, sessionID)
	if err != nil {
		return err
	}
	sub.Start(hello)
	return nil
}

// Notify publishes a delivery.
func (h *Hub) Notify(_ context.Context, ev model.DeliveryEvent) {
	h.Publish(Message{Type: TypeDelivery, SessionID: ev.SessionID, Phase: ev.Phase, Delivery: &ev})
}

// Publish sends msg to every subscriber of msg.SessionID without blocking.
func (h *Hub) Publish(msg Message) {
	var slow []*client

	h.mu.RLock()
	for c := range h.sessions[msg.SessionID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		metrics.RecordWSMessageDropped()
		h.logger.Warn(context.Background(), "dropping slow event stream client", logger.String("session", c.sessionID))
		h.unregister(c)
	}
}

// CloseSession tells subscribers the session ended and disconnects them.
func (h *Hub) CloseSession(sessionID string) {
	h.Publish(Message{Type: TypeSessionEnded, SessionID: sessionID})

	h.mu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	for c := range clients {
		close(c.send)
		h.count--
	}
	count := h.count
	h.mu.Unlock()

	metrics.UpdateWSSubscribers(count)
}

// Subscribers returns the number of connections watching sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, clients := range h.sessions {
		for c := range clients {
			close(c.send)
		}
		delete(h.sessions, id)
	}
	h.count = 0
	h.mu.Unlock()

	metrics.UpdateWSSubscribers(0)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.sessions[c.sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.sessions[c.sessionID] = set
	}
	set[c] = struct{}{}
	h.count++
	count := h.count
	h.mu.Unlock()

	metrics.UpdateWSSubscribers(count)
}

// unregister removes c and closes its send channel, once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set := h.sessions[c.sessionID]
	if _, ok := set[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.sessions, c.sessionID)
	}
	close(c.send)
	h.count--
	count := h.count
	h.mu.Unlock()

	metrics.UpdateWSSubscribers(count)
}

// readPump discards client frames and notices disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug(context.Background(), "event stream read failed", logger.Error(err))
			}
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
			metrics.RecordWSMessageSent()
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
