package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

type chanSink struct {
	lines chan string
}

func newChanSink() *chanSink {
	return &chanSink{lines: make(chan string, 16)}
}

func (s *chanSink) TryDeliver(line string) bool {
	select {
	case s.lines <- line:
		return true
	default:
		return false
	}
}

func (s *chanSink) drain() []string {
	var out []string
	for {
		select {
		case l := <-s.lines:
			out = append(out, l)
		default:
			return out
		}
	}
}

func newRegistry() *Registry {
	return New(stats.New(), logger.NewNop())
}

func TestBroadcastExcludesSender(t *testing.T) {
	reg := newRegistry()
	a, b := newChanSink(), newChanSink()
	reg.Register("general", a)
	reg.Register("general", b)

	reg.Broadcast("general", "alice|hi", a)

	assert.Empty(t, a.drain())
	assert.Equal(t, []string{"alice|hi"}, b.drain())
}

func TestBroadcastWithNilExcludeReachesEveryone(t *testing.T) {
	reg := newRegistry()
	a, b := newChanSink(), newChanSink()
	reg.Register("general", a)
	reg.Register("general", b)

	reg.Broadcast("general", "USERJOIN|bob|1", nil)

	assert.Equal(t, []string{"USERJOIN|bob|1"}, a.drain())
	assert.Equal(t, []string{"USERJOIN|bob|1"}, b.drain())
}

func TestNoDeliveryAfterUnregister(t *testing.T) {
	reg := newRegistry()
	a, b := newChanSink(), newChanSink()
	reg.Register("general", a)
	reg.Register("general", b)

	reg.Unregister("general", a)
	reg.Broadcast("general", "alice|hi", nil)

	assert.Empty(t, a.drain())
	assert.Equal(t, []string{"alice|hi"}, b.drain())
}

func TestRegisterIdempotent(t *testing.T) {
	reg := newRegistry()
	a := newChanSink()
	reg.Register("general", a)
	reg.Register("general", a)

	reg.Broadcast("general", "once", nil)
	assert.Equal(t, []string{"once"}, a.drain())
}

func TestRoomDeletedWhenEmpty(t *testing.T) {
	reg := newRegistry()
	a := newChanSink()
	reg.Register("general", a)
	assert.True(t, reg.HasRoom("general"))

	reg.Unregister("general", a)
	assert.False(t, reg.HasRoom("general"))
}

func TestMemberOrdinalsAssignedByArrival(t *testing.T) {
	reg := newRegistry()

	assert.Equal(t, 0, reg.MemberOrdinal("general", "alice"))
	assert.Equal(t, 1, reg.MemberOrdinal("general", "bob"))
	assert.Equal(t, 2, reg.MemberOrdinal("general", "carol"))

	// Rejoining keeps the original ordinal.
	assert.Equal(t, 1, reg.MemberOrdinal("general", "bob"))

	// Ordinals are per room.
	assert.Equal(t, 0, reg.MemberOrdinal("random", "bob"))
}

func TestOrdinalsNotReusedAfterLeave(t *testing.T) {
	reg := newRegistry()
	a, b := newChanSink(), newChanSink()

	assert.Equal(t, 0, reg.MemberOrdinal("general", "alice"))
	reg.Register("general", a)
	assert.Equal(t, 1, reg.MemberOrdinal("general", "bob"))
	reg.Register("general", b)

	// Alice leaves; bob stays, so the room entry survives and a newcomer
	// gets the next ordinal, not alice's.
	reg.Unregister("general", a)
	assert.Equal(t, 2, reg.MemberOrdinal("general", "carol"))
}

func TestActiveRoomListTracksRegistrations(t *testing.T) {
	sts := stats.New()
	reg := New(sts, logger.NewNop())
	a := newChanSink()

	reg.Register("general", a)
	assert.Equal(t, []string{"general"}, sts.ActiveRooms())

	reg.Unregister("general", a)
	assert.Empty(t, sts.ActiveRooms())
}

func TestFullSinkDoesNotBlockOthers(t *testing.T) {
	reg := newRegistry()
	full := &chanSink{lines: make(chan string)} // zero capacity, always full
	ok := newChanSink()
	reg.Register("general", full)
	reg.Register("general", ok)

	reg.Broadcast("general", "alice|hi", nil)

	assert.Equal(t, []string{"alice|hi"}, ok.drain())
}
