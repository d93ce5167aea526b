// Package server implements the session protocol state machine that
// validates chat operations and mutates the shared registries atomically.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRoom is joined when a client does not name a room.
const DefaultRoom = "general"

// ChatState owns the connection registry, room directory, and history ring
// behind a single mutex. Every operation runs its full mutating sequence as
// one critical section and captures its delivery targets before unlocking, so
// the hub can fan out to slow recipients without stalling other connections'
// state transitions.
type ChatState struct {
	mu       sync.Mutex
	registry *Registry
	rooms    *RoomDirectory
	history  *HistoryRing
}

// NewChatState creates an empty chat state.
func NewChatState() *ChatState {
	return &ChatState{
		registry: NewRegistry(),
		rooms:    NewRoomDirectory(),
		history:  NewHistoryRing(),
	}
}

// JoinResult captures everything a successful join must deliver: the notice
// targets, the refreshed member list, and the history snapshot for the joiner.
type JoinResult struct {
	Username string
	Room     string
	JoinedAt time.Time
	Others   []string // room members excluding the joiner
	All      []string // room members including the joiner
	Members  []MemberInfo
	Recent   []Message
}

// Join validates and performs the Unjoined -> Joined transition for a
// connection. It fails with a ValidationError for an empty username, a
// StateError when the connection already holds a session, and a
// ConflictError when the username is taken in the target room.
func (s *ChatState) Join(connID, username, room string, now time.Time) (*JoinResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Reason: "username is required"}
	}
	if room == "" {
		room = DefaultRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registry.Get(connID); ok {
		return nil, &StateError{Reason: fmt.Sprintf("already joined room %q; use change-room to move", existing.Room)}
	}
	if _, ok := s.registry.FindByUsernameInRoom(username, room); ok {
		return nil, &ConflictError{Reason: "username already taken in this room"}
	}

	s.registry.Put(connID, &Session{
		ConnID:   connID,
		Username: username,
		Room:     room,
		JoinedAt: now,
	})
	s.rooms.AddMember(room, connID)
	s.history.Ensure(room)

	return &JoinResult{
		Username: username,
		Room:     room,
		JoinedAt: now,
		Others:   s.membersExcluding(room, connID),
		All:      s.rooms.Members(room),
		Members:  s.memberList(room),
		Recent:   s.history.Recent(room, historySnapshot),
	}, nil
}

// MessageResult carries a freshly appended message and its room-wide
// delivery targets, sender included.
type MessageResult struct {
	Message Message
	Targets []string
}

// SendMessage appends a message to the sender's room history and returns the
// broadcast. Empty text and sessionless connections are silent no-ops.
func (s *ChatState) SendMessage(connID, text string, now time.Time) (*MessageResult, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.registry.Get(connID)
	if !ok {
		return nil, false
	}

	msg := Message{
		ID:        uuid.NewString(),
		Username:  sess.Username,
		Text:      text,
		Timestamp: now,
		Room:      sess.Room,
	}
	s.history.Append(sess.Room, msg)

	return &MessageResult{Message: msg, Targets: s.rooms.Members(sess.Room)}, true
}

// TypingResult carries a typing-state change and its delivery targets, which
// always exclude the typist.
type TypingResult struct {
	State   TypingState
	Targets []string
}

// SetTyping flips the session's typing flag. Sessionless connections are
// silent no-ops.
func (s *ChatState) SetTyping(connID string, active bool) (*TypingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.registry.Get(connID)
	if !ok {
		return nil, false
	}
	sess.IsTyping = active

	return &TypingResult{
		State:   TypingState{Username: sess.Username, Active: active},
		Targets: s.membersExcluding(sess.Room, connID),
	}, true
}

// RoomChangeResult captures both sides of a room move: leave targets in the
// old room, join targets in the new room, refreshed member lists for each,
// and the history snapshot for the mover. OldMembers is nil when the old
// room vanished with the mover's departure.
type RoomChangeResult struct {
	Username     string
	OldRoom      string
	NewRoom      string
	OldRemaining []string
	NewOthers    []string
	NewAll       []string
	OldMembers   []MemberInfo
	NewMembers   []MemberInfo
	Recent       []Message
}

// ChangeRoom performs the Joined -> Joined transition into a different room.
// An empty room name fails with a ValidationError; a sessionless connection
// or a move into the current room is a silent no-op.
func (s *ChatState) ChangeRoom(connID, newRoom string, now time.Time) (*RoomChangeResult, error) {
	if strings.TrimSpace(newRoom) == "" {
		return nil, &ValidationError{Reason: "room is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.registry.Get(connID)
	if !ok || sess.Room == newRoom {
		return nil, nil
	}

	oldRoom := sess.Room
	s.rooms.RemoveMember(oldRoom, connID)
	s.rooms.AddMember(newRoom, connID)
	sess.Room = newRoom
	s.history.Ensure(newRoom)

	res := &RoomChangeResult{
		Username:     sess.Username,
		OldRoom:      oldRoom,
		NewRoom:      newRoom,
		OldRemaining: s.rooms.Members(oldRoom),
		NewOthers:    s.membersExcluding(newRoom, connID),
		NewAll:       s.rooms.Members(newRoom),
		NewMembers:   s.memberList(newRoom),
		Recent:       s.history.Recent(newRoom, historySnapshot),
	}
	if s.rooms.Exists(oldRoom) {
		res.OldMembers = s.memberList(oldRoom)
	}
	return res, nil
}

// DisconnectResult carries the leave notice and refreshed member list for a
// departed connection's room.
type DisconnectResult struct {
	Username  string
	Room      string
	Remaining []string
	Members   []MemberInfo
}

// Disconnect performs the terminal Joined -> Unjoined transition. It is
// idempotent: a connection without a session reports false and mutates
// nothing, so processing a disconnect twice never double-broadcasts.
func (s *ChatState) Disconnect(connID string) (*DisconnectResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.registry.Get(connID)
	if !ok {
		return nil, false
	}

	s.rooms.RemoveMember(sess.Room, connID)
	s.registry.Remove(connID)

	return &DisconnectResult{
		Username:  sess.Username,
		Room:      sess.Room,
		Remaining: s.rooms.Members(sess.Room),
		Members:   s.memberList(sess.Room),
	}, true
}

// PrivateResult carries a point-to-point delivery: the event for the target
// connection and the receipt for the sender.
type PrivateResult struct {
	TargetConnID string
	Event        PrivateMessage
	Receipt      PrivateReceipt
}

// SendPrivate resolves a username globally across rooms and builds a
// point-to-point delivery. Missing fields fail with a ValidationError; an
// unknown target, or a sender without a session, fails with a NotFoundError.
// Nothing is stored in history and no room sees the exchange.
func (s *ChatState) SendPrivate(connID, targetUsername, text string, now time.Time) (*PrivateResult, error) {
	text = strings.TrimSpace(text)
	if targetUsername == "" || text == "" {
		return nil, &ValidationError{Reason: "target username and message are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.registry.Get(connID)
	if !ok {
		return nil, &NotFoundError{Reason: "user not found or offline"}
	}
	target, ok := s.registry.FindByUsername(targetUsername)
	if !ok {
		return nil, &NotFoundError{Reason: "user not found or offline"}
	}

	return &PrivateResult{
		TargetConnID: target.ConnID,
		Event: PrivateMessage{
			ID:        uuid.NewString(),
			From:      sender.Username,
			Text:      text,
			Timestamp: now,
		},
		Receipt: PrivateReceipt{
			To:        target.Username,
			Text:      text,
			Timestamp: now,
		},
	}, nil
}

// SweepEmptyRooms reclaims history for rooms with no members and drops any
// directory entry whose member set emptied without synchronous cleanup. It
// is a safety net; under correct operation RemoveMember already deletes
// empty rooms immediately. Returns the number of histories reclaimed.
func (s *ChatState) SweepEmptyRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stat := range s.rooms.AllRooms() {
		if stat.UserCount == 0 {
			s.rooms.DeleteIfEmpty(stat.Name)
		}
	}

	reclaimed := 0
	for _, room := range s.history.Rooms() {
		if !s.rooms.Exists(room) {
			s.history.Drop(room)
			reclaimed++
		}
	}
	return reclaimed
}

// Members returns the ordered member list for a room: every directory member
// that still holds a session, sorted by username. Stale directory entries are
// silently filtered.
func (s *ChatState) Members(room string) []MemberInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberList(room)
}

// SessionFor returns a copy of the session for a connection, if any.
func (s *ChatState) SessionFor(connID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.registry.Get(connID)
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// RoomExists reports whether a room currently has members.
func (s *ChatState) RoomExists(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.Exists(room)
}

// RoomCount returns the number of rooms with members.
func (s *ChatState) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.Len()
}

// ConnectionCount returns the number of joined connections.
func (s *ChatState) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Len()
}

// Stats summarizes live state for the read-only HTTP surface.
func (s *ChatState) Stats() (totalUsers, totalRooms int, rooms []RoomStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Len(), s.rooms.Len(), s.rooms.AllRooms()
}

// UserInfo describes one joined connection in the roster export.
type UserInfo struct {
	Username string    `json:"username"`
	Room     string    `json:"room"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Roster returns every joined connection's identity, sorted by username.
func (s *ChatState) Roster() []UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]UserInfo, 0, s.registry.Len())
	for _, sess := range s.registry.All() {
		users = append(users, UserInfo{
			Username: sess.Username,
			Room:     sess.Room,
			JoinedAt: sess.JoinedAt,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// RoomHistory returns the full retained history for a room, oldest first.
func (s *ChatState) RoomHistory(room string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(room, 0)
}

// memberList and membersExcluding expect s.mu to be held.

func (s *ChatState) memberList(room string) []MemberInfo {
	ids := s.rooms.Members(room)
	members := make([]MemberInfo, 0, len(ids))
	for _, id := range ids {
		sess, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		members = append(members, MemberInfo{
			ID:       sess.ConnID,
			Username: sess.Username,
			JoinedAt: sess.JoinedAt,
			IsTyping: sess.IsTyping,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })
	return members
}

func (s *ChatState) membersExcluding(room, connID string) []string {
	ids := s.rooms.Members(room)
	out := ids[:0]
	for _, id := range ids {
		if id != connID {
			out = append(out, id)
		}
	}
	return out
}
