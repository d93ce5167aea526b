// Package server defines the wire envelope and the closed set of typed event
// payloads exchanged with chat clients.
package server

import (
	"encoding/json"
	"strings"
	"time"
)

// Event names accepted from clients.
const (
	EventJoin       = "join"
	EventMessage    = "message"
	EventTyping     = "typing"
	EventPrivate    = "private"
	EventChangeRoom = "change-room"
)

// Event names emitted to clients.
const (
	EventJoinedAck       = "joined-ack"
	EventHistorySnapshot = "history-snapshot"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventMembersUpdate   = "members-update"
	EventMessageNew      = "message-event"
	EventTypingState     = "typing-event"
	EventPrivateNew      = "private-event"
	EventPrivateAck      = "private-ack"
	EventSystem          = "system"
	EventError           = "error"
)

// Envelope frames every message exchanged over a chat connection. The event
// name implies the shape of Data; payloads are decoded into the typed structs
// below before any business logic runs.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest is the payload of a join event. Room defaults to DefaultRoom
// when empty.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

// MessageRequest is the payload of a message event.
type MessageRequest struct {
	Text string `json:"text"`
}

// TypingRequest is the payload of a typing event.
type TypingRequest struct {
	Active bool `json:"active"`
}

// PrivateRequest is the payload of a private event.
type PrivateRequest struct {
	TargetUsername string `json:"targetUsername"`
	Text           string `json:"text"`
}

// ChangeRoomRequest is the payload of a change-room event.
type ChangeRoomRequest struct {
	Room string `json:"room"`
}

// Message is a chat message retained in room history and broadcast to the
// room as a message-event.
type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

// PrivateMessage is delivered to exactly one target connection. It is never
// stored in any history.
type PrivateMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateReceipt confirms private delivery to the sender.
type PrivateReceipt struct {
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomNotice announces a user joining or leaving a room.
type RoomNotice struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WelcomeNotice acknowledges a successful join to the joiner only.
type WelcomeNotice struct {
	Message   string    `json:"message"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemNotice carries server-level announcements such as the shutdown notice.
type SystemNotice struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberInfo describes one room member in a members-update payload.
type MemberInfo struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
	IsTyping bool      `json:"isTyping"`
}

// TypingState announces a member's typing flag to the rest of the room.
type TypingState struct {
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

// ErrorPayload carries a human-readable failure message to the originating
// connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalEvent serializes an outbound envelope once so a broadcast reuses the
// same bytes for every recipient.
func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
