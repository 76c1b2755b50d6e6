package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic identifiers for tests.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator yielding "<prefix>-1", "<prefix>-2", and
// so on. An empty prefix defaults to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next for constructor injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// RoomUIDs replays a fixed list of room identifiers regardless of the seed,
// repeating the last one once the list is exhausted. It lets tests force
// identifier collisions.
type RoomUIDs struct {
	mu    sync.Mutex
	uids  []string
	seeds []string
}

// NewRoomUIDs returns a generator replaying uids in order.
func NewRoomUIDs(uids ...string) *RoomUIDs {
	return &RoomUIDs{uids: uids}
}

// Generate implements the room identifier generator signature.
func (r *RoomUIDs) Generate(seed string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeds = append(r.seeds, seed)
	if len(r.uids) == 0 {
		return ""
	}
	next := r.uids[0]
	if len(r.uids) > 1 {
		r.uids = r.uids[1:]
	}
	return next
}

// Seeds returns every seed passed to Generate so far.
func (r *RoomUIDs) Seeds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seeds))
	copy(out, r.seeds)
	return out
}
