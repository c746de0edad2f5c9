package session

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/leovewc/DS.Chat/internal/port"
	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

const welcomeBanner = "Welcome! Commands: JOIN <room> <username>, SEND <room> <message>, LIST, HISTORY <room> <count>, QUIT"

// outboundQueueSize bounds each session's outbound queue so one stalled
// client never delays broadcast delivery to the others.
const outboundQueueSize = 64

type state int

const (
	stateInitial state = iota
	stateJoined
	stateClosed
)

// Session runs the protocol state machine for one client connection:
// INITIAL -> JOINED (JOIN) -> CLOSED (QUIT or I/O failure). All outbound
// traffic, replies and broadcasts alike, goes through the session's bounded
// queue drained by a single writer goroutine.
type Session struct {
	id    string
	conn  net.Conn
	relay port.RelayService
	stats *stats.Stats
	log   logger.Logger

	out  chan string
	quit chan struct{}
	once sync.Once

	state    state
	room     string
	username string
}

func New(conn net.Conn, relay port.RelayService, sts *stats.Stats, log logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:    id,
		conn:  conn,
		relay: relay,
		stats: sts,
		log: log.WithModule("session").WithFields(map[string]interface{}{
			"session": id,
			"remote":  conn.RemoteAddr().String(),
		}),
		out:  make(chan string, outboundQueueSize),
		quit: make(chan struct{}),
	}
}

// TryDeliver implements registry.Sink. It never blocks: a full queue drops
// the line for this session only.
func (s *Session) TryDeliver(line string) bool {
	select {
	case s.out <- line:
		return true
	default:
		return false
	}
}

// Run processes commands until QUIT or connection failure, then cleans up
// room membership and the connection.
func (s *Session) Run() {
	s.stats.ClientConnected()
	go s.writeLoop()

	defer func() {
		if s.state == stateJoined {
			s.relay.Leave(s.room, s)
		}
		s.state = stateClosed
		s.stats.ClientDisconnected()
		s.signalQuit()
		s.log.Infof("session closed")
	}()

	s.reply(welcomeBanner)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		s.handleLine(strings.TrimRight(scanner.Text(), "\r"))
		if s.state == stateClosed {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Errorf("read error: %v", err)
	}
}

func (s *Session) handleLine(line string) {
	if line == "" {
		return
	}
	parts := strings.SplitN(line, " ", 3)
	verb := strings.ToUpper(parts[0])

	switch verb {
	case "JOIN":
		s.handleJoin(parts)
	case "SEND":
		s.handleSend(parts)
	case "LIST":
		s.reply("Rooms: " + strings.Join(s.relay.ListRooms(), ", "))
	case "HISTORY":
		s.handleHistory(parts)
	case "QUIT":
		s.reply("Goodbye!")
		s.stats.AddLog("Client quit" + s.quitSuffix())
		if s.state == stateJoined {
			s.relay.Leave(s.room, s)
			s.room = ""
		}
		s.state = stateClosed
	default:
		s.reply("Unknown command.")
	}
}

func (s *Session) handleJoin(parts []string) {
	if len(parts) < 3 {
		s.reply("Usage: JOIN <room> <username>")
		return
	}
	room, username := parts[1], parts[2]

	// Re-JOIN switches rooms: leave the old one first.
	if s.state == stateJoined && s.room != room {
		s.relay.Leave(s.room, s)
	}

	ordinal, recent := s.relay.Join(room, username, s)
	s.room, s.username = room, username
	s.state = stateJoined

	s.reply("Joined room: " + room)
	for _, entry := range recent {
		s.reply(entry.Text)
	}
	s.log.Infof("joined room %s as %s (ordinal %d)", room, username, ordinal)
}

func (s *Session) handleSend(parts []string) {
	if s.state != stateJoined {
		s.reply("You must JOIN a room first.")
		return
	}
	if len(parts) < 3 {
		s.reply("Usage: SEND <room> <message>")
		return
	}
	room, text := parts[1], parts[2]

	if err := s.relay.Send(room, s.username, text, s); err != nil {
		s.reply("Error persisting message: " + err.Error())
		return
	}
	s.reply("Message sent to " + room)
}

func (s *Session) handleHistory(parts []string) {
	if len(parts) < 3 {
		s.reply("Usage: HISTORY <room> <count>")
		return
	}
	room := parts[1]
	count, err := strconv.Atoi(parts[2])
	if err != nil || count < 0 {
		s.reply("Count must be a non-negative number")
		return
	}

	entries := s.relay.History(room, count)
	s.reply(fmt.Sprintf("Last %d messages in %s:", count, room))
	for _, entry := range entries {
		s.reply(entry.Text)
	}
}

func (s *Session) quitSuffix() string {
	if s.room != "" {
		return " from room: " + s.room
	}
	return ""
}

// reply queues a line for the client. Replies share the broadcast queue so
// everything reaches the socket in queueing order.
func (s *Session) reply(line string) {
	if !s.TryDeliver(line) {
		s.log.Warnf("dropped reply: outbound queue full")
	}
}

func (s *Session) signalQuit() {
	s.once.Do(func() { close(s.quit) })
}

// writeLoop drains the outbound queue onto the socket. On quit it flushes
// whatever is still queued (the goodbye reply in particular) before closing
// the connection.
func (s *Session) writeLoop() {
	w := bufio.NewWriter(s.conn)
	for {
		select {
		case line := <-s.out:
			if _, err := w.WriteString(line + "\n"); err == nil {
				err = w.Flush()
				if err == nil {
					continue
				}
			}
			s.conn.Close()
			return
		case <-s.quit:
			for {
				select {
				case line := <-s.out:
					w.WriteString(line + "\n")
				default:
					w.Flush()
					s.conn.Close()
					return
				}
			}
		}
	}
}
