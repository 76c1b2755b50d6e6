// Package registry tracks which participants are reachable in which rooms.
//
// The registry holds non-owning handles: the transport that created a handle
// is responsible for closing it and for releasing it here when it goes away.
package registry

import (
	"context"
	"sort"
	"sync"
)

// Conn is a live connection that can receive outbound messages.
type Conn interface {
	Send(ctx context.Context, message any) error
}

// Peer is one registered participant of a room together with its handle.
type Peer struct {
	ParticipantID string
	Conn          Conn
}

// Registry maps room identifiers to the live connection of each participant.
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]Conn
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[string]map[string]Conn)}
}

// Register records conn as the handle for participant in room, replacing any
// handle registered earlier for the same pair.
func (r *Registry) Register(room, participant string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers, ok := r.rooms[room]
	if !ok {
		peers = make(map[string]Conn)
		r.rooms[room] = peers
	}
	peers[participant] = conn
}

// Unregister removes participant from room. The room entry is dropped once
// its last participant is gone.
func (r *Registry) Unregister(room, participant string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(room, participant, nil)
}

// Release removes participant from room only while conn is still the
// registered handle. It reports whether anything was removed. A connection
// that was superseded by a newer one for the same pair leaves the newer
// registration in place.
func (r *Registry) Release(room, participant string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(room, participant, conn)
}

func (r *Registry) removeLocked(room, participant string, expected Conn) bool {
	peers, ok := r.rooms[room]
	if !ok {
		return false
	}
	current, ok := peers[participant]
	if !ok {
		return false
	}
	if expected != nil && current != expected {
		return false
	}
	delete(peers, participant)
	if len(peers) == 0 {
		delete(r.rooms, room)
	}
	return true
}

// Snapshot returns the peers currently registered in room, ordered by
// participant identifier. The slice is a copy; sending to the peers happens
// without holding the registry lock.
func (r *Registry) Snapshot(room string) []Peer {
	r.mu.Lock()
	peers := make([]Peer, 0, len(r.rooms[room]))
	for id, conn := range r.rooms[room] {
		peers = append(peers, Peer{ParticipantID: id, Conn: conn})
	}
	r.mu.Unlock()

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].ParticipantID < peers[j].ParticipantID
	})
	return peers
}

// Len reports how many participants are registered in room.
func (r *Registry) Len(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}

// HasRoom reports whether room has an entry at all.
func (r *Registry) HasRoom(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[room]
	return ok
}

// Rooms returns the number of rooms with at least one registered participant.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
