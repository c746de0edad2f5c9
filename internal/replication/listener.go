package replication

import (
	"bufio"
	"fmt"
	"net"

	"github.com/leovewc/DS.Chat/internal/domain"
	"github.com/leovewc/DS.Chat/internal/store"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

// Listener is the follower side of the replication link. It accepts leader
// connections on a dedicated port and applies each "<room>|<payload>" line
// directly into the local HistoryStore, bypassing the session pipeline: no
// membership, no avatar ordinals, no persistence log. That asymmetry with the
// leader-side write path is intentional.
type Listener struct {
	store *store.HistoryStore
	log   logger.Logger
	ln    net.Listener
}

func NewListener(st *store.HistoryStore, log logger.Logger) *Listener {
	return &Listener{
		store: st,
		log:   log.WithModule("replication"),
	}
}

// Start binds the replication port and begins accepting leader connections.
func (l *Listener) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("bind replication port %d: %w", port, err)
	}
	l.ln = ln
	l.log.Infof("replication listener on %s", ln.Addr())

	go l.acceptLoop()
	return nil
}

// Addr returns the bound address. Valid only after Start.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting. In-flight connections finish on their own.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		room, payload, ok := domain.SplitReplication(scanner.Text())
		if !ok {
			continue
		}
		l.store.Append(room, payload)
		l.log.Debugf("replicated entry into room %s", room)
	}
	if err := scanner.Err(); err != nil {
		l.log.Errorf("replication connection error: %v", err)
	}
}
