package registry

import (
	"sync"

	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

// Sink is one registered recipient of room broadcasts. TryDeliver must not
// block: it reports false when the recipient's outbound queue is full, in
// which case the line is dropped for that recipient only.
type Sink interface {
	TryDeliver(line string) bool
}

type room struct {
	sinks []Sink
	// members is the arrival-ordered list of every username that ever
	// joined this room. A username's index is its avatar ordinal: assigned
	// on first join, never changed, never reused, even after the user
	// leaves. The list dies only with the room entry itself.
	members []string
}

// Registry maps room names to their registered sinks and member lists.
// Register, Unregister, Broadcast and MemberOrdinal are safe for arbitrary
// concurrent callers.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	stats *stats.Stats
	log   logger.Logger
}

func New(st *stats.Stats, log logger.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		stats: st,
		log:   log.WithModule("registry"),
	}
}

// Register adds sink to the room, creating the room entry if absent.
// Registering the same sink twice is a no-op.
func (r *Registry) Register(roomName string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.ensureRoom(roomName)
	for _, s := range rm.sinks {
		if s == sink {
			return
		}
	}
	rm.sinks = append(rm.sinks, sink)
	r.stats.SetActiveRooms(r.roomNamesLocked())
}

// Unregister removes sink from the room. The room entry (sinks and member
// list both) is deleted once its sink set becomes empty.
func (r *Registry) Unregister(roomName string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		return
	}
	for i, s := range rm.sinks {
		if s == sink {
			rm.sinks = append(rm.sinks[:i], rm.sinks[i+1:]...)
			break
		}
	}
	if len(rm.sinks) == 0 {
		delete(r.rooms, roomName)
	}
	r.stats.SetActiveRooms(r.roomNamesLocked())
}

// Broadcast delivers line to every sink currently registered in the room
// except exclude (which may be nil). Delivery iterates a snapshot taken under
// the lock, so concurrent register/unregister never corrupts an in-flight
// broadcast. A sink whose queue is full misses the line; later sinks are not
// delayed.
func (r *Registry) Broadcast(roomName, line string, exclude Sink) {
	r.mu.RLock()
	rm, ok := r.rooms[roomName]
	var snapshot []Sink
	if ok {
		snapshot = append([]Sink(nil), rm.sinks...)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if s == exclude {
			continue
		}
		if !s.TryDeliver(line) {
			r.log.Warnf("dropped broadcast line in room %s: recipient queue full", roomName)
		}
	}
}

// HasRoom reports whether the room currently has any registered sinks.
func (r *Registry) HasRoom(roomName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomName]
	return ok
}

// MemberOrdinal returns the 0-based avatar ordinal for username in the room:
// the index of the username's first join in arrival order, appending it if
// this is the first. The room entry is created if absent.
func (r *Registry) MemberOrdinal(roomName, username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.ensureRoom(roomName)
	for i, m := range rm.members {
		if m == username {
			return i
		}
	}
	rm.members = append(rm.members, username)
	return len(rm.members) - 1
}

// RoomNames returns a snapshot of rooms with registered sinks.
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roomNamesLocked()
}

func (r *Registry) ensureRoom(roomName string) *room {
	rm, ok := r.rooms[roomName]
	if !ok {
		rm = &room{}
		r.rooms[roomName] = rm
	}
	return rm
}

func (r *Registry) roomNamesLocked() []string {
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	return names
}
