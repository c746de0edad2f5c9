package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const maxRecentLogs = 100

// Stats aggregates the runtime counters and the bounded log buffer exposed to
// external dashboards: active client count, active room list and the last
// maxRecentLogs operator log lines.
type Stats struct {
	activeClients atomic.Int64

	mu          sync.Mutex
	activeRooms []string
	recentLogs  []string
	subscribers map[int]chan string
	nextSubID   int
}

func New() *Stats {
	return &Stats{subscribers: make(map[int]chan string)}
}

// ClientConnected bumps the client counter and records a log line.
func (s *Stats) ClientConnected() {
	n := s.activeClients.Add(1)
	s.AddLog(fmt.Sprintf("Client connected. Total clients: %d", n))
}

// ClientDisconnected drops the client counter and records a log line.
func (s *Stats) ClientDisconnected() {
	n := s.activeClients.Add(-1)
	s.AddLog(fmt.Sprintf("Client disconnected. Total clients: %d", n))
}

func (s *Stats) ActiveClients() int {
	return int(s.activeClients.Load())
}

// SetActiveRooms replaces the active room list.
func (s *Stats) SetActiveRooms(rooms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRooms = append([]string(nil), rooms...)
}

func (s *Stats) ActiveRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.activeRooms...)
}

// AddLog appends one line to the bounded buffer, evicting the oldest line
// past maxRecentLogs, and fans it out to live subscribers. A subscriber that
// cannot keep up misses lines rather than blocking the caller.
func (s *Stats) AddLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentLogs = append(s.recentLogs, line)
	if len(s.recentLogs) > maxRecentLogs {
		s.recentLogs = s.recentLogs[len(s.recentLogs)-maxRecentLogs:]
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

func (s *Stats) RecentLogs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recentLogs...)
}

// SubscribeLogs registers a live feed of log lines. The returned cancel
// function must be called to release the subscription.
func (s *Stats) SubscribeLogs() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan string, 32)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}
