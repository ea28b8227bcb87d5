package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/domain"
)

// Handle is the registry's non-owning view of a connected session: enough to
// push a payload at it and to shut it down when it stops draining. The
// session owns its own lifecycle; the registry never does.
type Handle interface {
	// Deliver enqueues a payload for the peer. It returns an error when the
	// session is closed or its send buffer stays full past the configured
	// send timeout.
	Deliver(payload []byte) error
	// Shutdown tears the session down. Safe to call more than once and from
	// any goroutine.
	Shutdown()
}

// Registry is the process-wide mapping from room key to the set of sessions
// currently joined to that room. It is the only shared mutable structure in
// the realtime core; all mutation goes through Join, Leave and Broadcast.
type Registry struct {
	mu    sync.Mutex
	rooms map[domain.RoomKey]map[Handle]struct{}
}

// NewRegistry creates an empty registry. One instance is constructed at
// process start and handed to every session and to the dispatcher.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomKey]map[Handle]struct{}),
	}
}

// Join adds a handle to the room's set, creating the room lazily.
func (r *Registry) Join(key domain.RoomKey, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[key]
	if !ok {
		room = make(map[Handle]struct{})
		r.rooms[key] = room
	}
	room[h] = struct{}{}
}

// Leave removes a handle from the room's set and evicts the room once empty.
// A no-op when the handle is not a member.
func (r *Registry) Leave(key domain.RoomKey, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[key]
	if !ok {
		return
	}
	delete(room, h)
	if len(room) == 0 {
		delete(r.rooms, key)
	}
}

// Count returns the current number of sessions joined to the room.
func (r *Registry) Count(key domain.RoomKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[key])
}

// Broadcast delivers payload to every handle that is a member of the room at
// call time. Membership is snapshotted under the lock and delivery happens
// outside it, so slow peers never hold up Join or Leave. A failed delivery
// shuts that one handle down and does not affect the others.
func (r *Registry) Broadcast(key domain.RoomKey, payload []byte) {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.rooms[key]))
	for h := range r.rooms[key] {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		if err := h.Deliver(payload); err != nil {
			log.Warn().
				Str("room", key.String()).
				Err(err).
				Msg("Dropping unresponsive room member")
			h.Shutdown()
		}
	}
}
