package ws

import "github.com/okian/crease/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendBuffer sets how many messages may wait per client before it is
// considered slow.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
