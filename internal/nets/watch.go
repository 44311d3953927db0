package nets

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/okian/crease/internal/adapters/ws"
	"github.com/okian/crease/pkg/logger"
)

// EventsURL turns an http(s) base URL into the websocket URL of a session stream.
func EventsURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/sessions/" + url.PathEscape(sessionID) + "/events"
	return u.String(), nil
}

// Watch follows one session's event stream until it ends or ctx is done and
// returns the frames it read, keyed by type.
func Watch(ctx context.Context, baseURL, sessionID string, log logger.Logger) (map[string]int, error) {
	target, err := EventsURL(baseURL, sessionID)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	seen := make(map[string]int)
	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return seen, nil
			}
			return seen, fmt.Errorf("read %s: %w", target, err)
		}
		seen[msg.Type]++
		if msg.Delivery != nil {
			log.Debug(ctx, "event",
				logger.String("type", msg.Type),
				logger.Int("ball", msg.Delivery.Ball),
				logger.String("banner", msg.Delivery.Banner))
		}
		if msg.Type == ws.TypeSessionEnded {
			return seen, nil
		}
	}
}
