package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentMessagesReturnsTailInOrder(t *testing.T) {
	st := NewHistoryStore()
	for i := 0; i < 5; i++ {
		st.Append("general", fmt.Sprintf("msg-%d", i))
	}

	got := st.RecentMessages("general", 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "msg-2", got[0].Text)
	assert.Equal(t, "msg-3", got[1].Text)
	assert.Equal(t, "msg-4", got[2].Text)

	// Asking for more than exists returns everything, oldest first.
	all := st.RecentMessages("general", 100)
	assert.Len(t, all, 5)
	assert.Equal(t, "msg-0", all[0].Text)
}

func TestRecentMessagesEdgeCases(t *testing.T) {
	st := NewHistoryStore()
	st.Append("general", "hello")

	assert.Empty(t, st.RecentMessages("general", 0))
	assert.Empty(t, st.RecentMessages("general", -1))
	assert.Empty(t, st.RecentMessages("nowhere", 10))
}

func TestRecentMessagesReturnsCopy(t *testing.T) {
	st := NewHistoryStore()
	st.Append("general", "hello")

	got := st.RecentMessages("general", 10)
	got[0].Text = "mutated"

	again := st.RecentMessages("general", 10)
	assert.Equal(t, "hello", again[0].Text)
}

func TestCreateRoomIdempotent(t *testing.T) {
	st := NewHistoryStore()
	st.CreateRoom("general")
	st.Append("general", "hello")
	st.CreateRoom("general")

	assert.Equal(t, []string{"general"}, st.ListRooms())
	assert.Len(t, st.RecentMessages("general", 10), 1)
}

func TestRemoveRoom(t *testing.T) {
	st := NewHistoryStore()
	st.Append("general", "hello")
	st.RemoveRoom("general")

	assert.Empty(t, st.ListRooms())

	// A new append recreates the room from empty.
	st.Append("general", "again")
	assert.Equal(t, []string{"general"}, st.ListRooms())
	assert.Len(t, st.RecentMessages("general", 10), 1)
}

func TestConcurrentAppendsAndReads(t *testing.T) {
	st := NewHistoryStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				st.Append("general", fmt.Sprintf("w%d-%d", w, i))
				st.RecentMessages("general", 10)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, st.RecentMessages("general", 1000), 800)
}
