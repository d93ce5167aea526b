// Package server keeps the bounded per-room message history ring.
package server

// historyLimit is the maximum number of messages retained per room; the
// oldest entry is evicted first. historySnapshot is how many recent messages
// a connection receives right after joining or changing rooms.
const (
	historyLimit    = 100
	historySnapshot = 20
)

// HistoryRing maps room names to their retained messages, oldest first.
// History is independent of room membership: it may outlive a momentarily
// empty room until the periodic sweep reclaims both. It performs no locking
// of its own; ChatState serializes all access.
type HistoryRing struct {
	messages map[string][]Message
}

// NewHistoryRing creates an empty history ring.
func NewHistoryRing() *HistoryRing {
	return &HistoryRing{messages: make(map[string][]Message)}
}

// Ensure idempotently creates an empty history for a room so a just-created
// room is always queryable rather than absent.
func (h *HistoryRing) Ensure(room string) {
	if _, ok := h.messages[room]; !ok {
		h.messages[room] = make([]Message, 0, historySnapshot)
	}
}

// Append adds a message to a room's history, creating the history if absent
// and evicting from the front beyond the retention limit.
func (h *HistoryRing) Append(room string, msg Message) {
	msgs := append(h.messages[room], msg)
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	h.messages[room] = msgs
}

// Recent returns a copy of the newest n messages for a room, oldest first.
// n <= 0 returns the full retained history.
func (h *HistoryRing) Recent(room string, n int) []Message {
	msgs := h.messages[room]
	if n <= 0 || n > len(msgs) {
		n = len(msgs)
	}
	out := make([]Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}

// Drop discards a room's history.
func (h *HistoryRing) Drop(room string) {
	delete(h.messages, room)
}

// Rooms returns every room name with a history entry, including empty ones.
func (h *HistoryRing) Rooms() []string {
	rooms := make([]string, 0, len(h.messages))
	for room := range h.messages {
		rooms = append(rooms, room)
	}
	return rooms
}
