// Package dedupe tracks swipe submissions so a retried request never consumes
// a second delivery.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen swipe keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. The check and the insert happen under one lock.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a rejected submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key builds the dedupe key of one swipe within a session.
func Key(sessionID, swipeID string) string {
	return sessionID + "/" + swipeID
}

// inMemoryDeduper keeps keys in a map and, when bounded, a ring of insertion
// order so the oldest key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot, -1 when unbounded
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a deduper. The default bound is 50000 keys.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: 50000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	// slot holds the oldest key once the ring has wrapped
	old := d.ring[d.next]
	if slot, ok := d.seen[old]; ok && slot == d.next {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
