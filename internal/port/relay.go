package port

import (
	"github.com/leovewc/DS.Chat/internal/domain"
	"github.com/leovewc/DS.Chat/internal/registry"
)

// RelayService is the session-facing surface of the relay: everything a
// protocol command may do to rooms, history, persistence and replication.
type RelayService interface {
	// Join registers sink in the room, announces the join to all members
	// (including the joiner) and returns the user's avatar ordinal plus up
	// to the last 10 history entries.
	Join(room, username string, sink registry.Sink) (ordinal int, recent []domain.HistoryEntry)

	// Send commits one message: in-memory append, durable append, push to
	// followers, broadcast to every other room member. A non-nil error is a
	// persistence failure to report to the sender; the in-memory write and
	// the broadcast still happened.
	Send(room, username, text string, sink registry.Sink) error

	// Leave unregisters sink from the room.
	Leave(room string, sink registry.Sink)

	ListRooms() []string
	History(room string, count int) []domain.HistoryEntry
}
