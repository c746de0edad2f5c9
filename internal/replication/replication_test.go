package replication

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/internal/store"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

func waitForMessages(t *testing.T, st *store.HistoryStore, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(st.RecentMessages(room, want+1)) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d messages", room, want)
}

func TestListenerAppliesPushedEntries(t *testing.T) {
	followerStore := store.NewHistoryStore()
	listener := NewListener(followerStore, logger.NewNop())
	require.NoError(t, listener.Start(0))
	t.Cleanup(func() { listener.Close() })

	pusher := NewPusher([]string{listener.Addr().String()}, stats.New(), logger.NewNop())
	pusher.Push("general", "alice: hi")
	pusher.Push("general", "bob: hello")

	waitForMessages(t, followerStore, "general", 2)

	texts := []string{}
	for _, e := range followerStore.RecentMessages("general", 10) {
		texts = append(texts, e.Text)
	}
	assert.ElementsMatch(t, []string{"alice: hi", "bob: hello"}, texts)
}

func TestListenerSkipsLinesWithoutSeparator(t *testing.T) {
	followerStore := store.NewHistoryStore()
	listener := NewListener(followerStore, logger.NewNop())
	require.NoError(t, listener.Start(0))
	t.Cleanup(func() { listener.Close() })

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	fmt.Fprintln(conn, "line with no separator")
	fmt.Fprintln(conn, "general|alice: hi")
	conn.Close()

	waitForMessages(t, followerStore, "general", 1)
	assert.Equal(t, []string{"general"}, followerStore.ListRooms())
	assert.Equal(t, "alice: hi", followerStore.RecentMessages("general", 1)[0].Text)
}

func TestUnreachableFollowerIsSilentlySkipped(t *testing.T) {
	reachableStore := store.NewHistoryStore()
	listener := NewListener(reachableStore, logger.NewNop())
	require.NoError(t, listener.Start(0))
	t.Cleanup(func() { listener.Close() })

	// Second target points nowhere. The push must still reach the live
	// follower and must not return or panic for the dead one.
	targets := []string{listener.Addr().String(), "127.0.0.1:1"}
	pusher := NewPusher(targets, stats.New(), logger.NewNop())
	pusher.Push("general", "alice: hi")

	waitForMessages(t, reachableStore, "general", 1)
	assert.Equal(t, "alice: hi", reachableStore.RecentMessages("general", 1)[0].Text)
}

func TestPayloadMayContainSeparator(t *testing.T) {
	followerStore := store.NewHistoryStore()
	listener := NewListener(followerStore, logger.NewNop())
	require.NoError(t, listener.Start(0))
	t.Cleanup(func() { listener.Close() })

	// Only the first '|' splits room from payload.
	pusher := NewPusher([]string{listener.Addr().String()}, stats.New(), logger.NewNop())
	pusher.Push("general", "alice: a|b|c")

	waitForMessages(t, followerStore, "general", 1)
	assert.Equal(t, "alice: a|b|c", followerStore.RecentMessages("general", 1)[0].Text)
}
