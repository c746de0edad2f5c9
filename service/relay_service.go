package service

import (
	"fmt"

	"github.com/leovewc/DS.Chat/internal/domain"
	"github.com/leovewc/DS.Chat/internal/persist"
	"github.com/leovewc/DS.Chat/internal/port"
	"github.com/leovewc/DS.Chat/internal/registry"
	"github.com/leovewc/DS.Chat/internal/replication"
	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/internal/store"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

const joinHistoryCount = 10

type relayService struct {
	store    *store.HistoryStore
	registry *registry.Registry
	plog     *persist.Log
	pusher   *replication.Pusher
	stats    *stats.Stats
	log      logger.Logger
}

func NewRelayService(
	st *store.HistoryStore,
	reg *registry.Registry,
	plog *persist.Log,
	pusher *replication.Pusher,
	sts *stats.Stats,
	log logger.Logger,
) port.RelayService {
	return &relayService{
		store:    st,
		registry: reg,
		plog:     plog,
		pusher:   pusher,
		stats:    sts,
		log:      log.WithModule("relay"),
	}
}

func (r *relayService) Join(room, username string, sink registry.Sink) (int, []domain.HistoryEntry) {
	ordinal := r.registry.MemberOrdinal(room, username)
	r.store.CreateRoom(room)
	r.registry.Register(room, sink)

	// The joiner is registered first so the USERJOIN announcement reaches
	// them too.
	r.registry.Broadcast(room, domain.FormatUserJoin(username, ordinal), nil)

	r.stats.AddLog(fmt.Sprintf("%s joined room %s", username, room))
	return ordinal, r.store.RecentMessages(room, joinHistoryCount)
}

func (r *relayService) Send(room, username, text string, sink registry.Sink) error {
	stored := username + ": " + text
	r.store.Append(room, stored)

	// Persistence failure goes back to the sender, but the in-memory append
	// stands and the message still fans out: memory and durable state are
	// allowed to diverge here.
	perr := r.plog.AppendEntry(room, stored)
	if perr != nil {
		r.log.Errorf("failed to persist message in room %s: %v", room, perr)
	}

	r.pusher.Push(room, stored)
	r.registry.Broadcast(room, domain.FormatChat(username, text), sink)

	r.stats.AddLog(fmt.Sprintf("Message sent to %s: %s", room, text))
	return perr
}

func (r *relayService) Leave(room string, sink registry.Sink) {
	r.registry.Unregister(room, sink)
}

func (r *relayService) ListRooms() []string {
	return r.store.ListRooms()
}

func (r *relayService) History(room string, count int) []domain.HistoryEntry {
	return r.store.RecentMessages(room, count)
}
