package domain

import (
	"fmt"
	"strings"
	"time"
)

// HistoryEntry is one committed chat line in a room. Entries within a room are
// strictly append-ordered; the timestamp is informational and does not need to
// survive a persistence round trip.
type HistoryEntry struct {
	Room      string
	Text      string
	Timestamp time.Time
}

// Wire formats shared by the client protocol and the replication link. All of
// them are single newline-terminated lines with '|' separators.

// FormatChat builds the broadcast line announcing a chat message to other
// room members: "<username>|<text>".
func FormatChat(username, text string) string {
	return username + "|" + text
}

// FormatUserJoin builds the broadcast line announcing a join together with the
// user's avatar ordinal: "USERJOIN|<username>|<ordinal>".
func FormatUserJoin(username string, ordinal int) string {
	return fmt.Sprintf("USERJOIN|%s|%d", username, ordinal)
}

// FormatReplication builds one replication push line: "<room>|<payload>".
func FormatReplication(room, payload string) string {
	return room + "|" + payload
}

// SplitReplication splits an inbound replication line on the first '|'.
func SplitReplication(line string) (room, payload string, ok bool) {
	return strings.Cut(line, "|")
}
