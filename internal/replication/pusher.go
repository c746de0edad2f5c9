package replication

import (
	"fmt"
	"net"

	"github.com/leovewc/DS.Chat/internal/domain"
	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

// Pusher sends committed entries to a static list of follower targets fixed
// at startup. Replication is at-most-once and best-effort: one short-lived
// connection per entry per target, no acknowledgment, no retry queue. An
// unreachable follower permanently misses entries pushed while it was down,
// and nothing is ever surfaced to the originating client.
type Pusher struct {
	targets []string
	stats   *stats.Stats
	log     logger.Logger
}

func NewPusher(targets []string, st *stats.Stats, log logger.Logger) *Pusher {
	return &Pusher{
		targets: targets,
		stats:   st,
		log:     log.WithModule("replication"),
	}
}

// Push fans the entry out to every follower. Each target is pushed from its
// own goroutine so the client-facing reply path never waits on a slow or
// dead follower.
func (p *Pusher) Push(room, payload string) {
	for _, target := range p.targets {
		go p.pushOne(target, room, payload)
	}
}

func (p *Pusher) pushOne(target, room, payload string) {
	conn, err := net.Dial("tcp", target)
	if err != nil {
		p.log.Errorf("failed to replicate to %s: %v", target, err)
		p.stats.AddLog(fmt.Sprintf("Replication to %s failed: %v", target, err))
		return
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, domain.FormatReplication(room, payload)); err != nil {
		p.log.Errorf("failed to write replication entry to %s: %v", target, err)
		p.stats.AddLog(fmt.Sprintf("Replication to %s failed: %v", target, err))
	}
}
