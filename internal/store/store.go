package store

import (
	"sync"
	"time"

	"github.com/leovewc/DS.Chat/internal/domain"
)

// HistoryStore keeps every room's message history in memory. Reads may run
// concurrently; writes are exclusive with each other and with reads so a
// reader never observes a partially applied append. Every returned slice is
// an independent copy, never a live reference into the shared maps.
type HistoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{rooms: make(map[string][]domain.HistoryEntry)}
}

// CreateRoom ensures the room exists. Calling it twice is a no-op and loses
// no messages.
func (s *HistoryStore) CreateRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		s.rooms[room] = []domain.HistoryEntry{}
	}
}

// Append adds one message to the room's tail, creating the room if absent.
func (s *HistoryStore) Append(room, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = append(s.rooms[room], domain.HistoryEntry{
		Room:      room,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// RecentMessages returns the last min(count, size) entries oldest-first.
// count <= 0 or an unknown room yields an empty slice, not an error.
func (s *HistoryStore) RecentMessages(room string, count int) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.rooms[room]
	if count <= 0 || len(msgs) == 0 {
		return []domain.HistoryEntry{}
	}
	from := len(msgs) - count
	if from < 0 {
		from = 0
	}
	out := make([]domain.HistoryEntry, len(msgs)-from)
	copy(out, msgs[from:])
	return out
}

// ListRooms returns a snapshot of the known room names.
func (s *HistoryStore) ListRooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		names = append(names, room)
	}
	return names
}

// RemoveRoom deletes the room's full history. Only safe once no session
// still references the room; a later append recreates it empty.
func (s *HistoryStore) RemoveRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}
