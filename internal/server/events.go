// Package server routes decoded client envelopes through the session state
// machine and instructs the hub to deliver the resulting events.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// dispatch routes one inbound envelope to its handler. Unknown event names
// surface as an error event to the originator only.
func (h *Hub) dispatch(client *Client, env Envelope) {
	switch env.Event {
	case EventJoin:
		h.handleJoin(client, env.Data)
	case EventMessage:
		h.handleMessage(client, env.Data)
	case EventTyping:
		h.handleTyping(client, env.Data)
	case EventPrivate:
		h.handlePrivate(client, env.Data)
	case EventChangeRoom:
		h.handleChangeRoom(client, env.Data)
	default:
		h.sendToClient(client, EventError, ErrorPayload{Message: fmt.Sprintf("unknown event %q", env.Event)})
	}
}

// decodePayload unmarshals an event payload into its typed form. A missing or
// malformed payload is reported to the originator and stops the event.
func (h *Hub) decodePayload(client *Client, event string, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		h.sendToClient(client, EventError, ErrorPayload{Message: fmt.Sprintf("missing %s payload", event)})
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Invalid %s payload from %s: %v", event, client.id, err)
		h.sendToClient(client, EventError, ErrorPayload{Message: fmt.Sprintf("invalid %s payload", event)})
		return false
	}
	return true
}

func (h *Hub) handleJoin(client *Client, data json.RawMessage) {
	var req JoinRequest
	if !h.decodePayload(client, EventJoin, data, &req) {
		return
	}

	res, err := h.state.Join(client.id, req.Username, req.Room, time.Now())
	if err != nil {
		h.sendToClient(client, EventError, ErrorPayload{Message: err.Error()})
		return
	}

	h.sendEventTo(res.Others, EventUserJoined, RoomNotice{
		Username:  res.Username,
		Message:   fmt.Sprintf("%s joined the chat", res.Username),
		Timestamp: res.JoinedAt,
	})
	h.sendEventTo(res.All, EventMembersUpdate, res.Members)
	h.sendToClient(client, EventJoinedAck, WelcomeNotice{
		Message:   fmt.Sprintf("Welcome to the %s chat room, %s!", res.Room, res.Username),
		Room:      res.Room,
		Timestamp: res.JoinedAt,
	})
	h.sendToClient(client, EventHistorySnapshot, res.Recent)

	metricRooms.Set(float64(h.state.RoomCount()))
	log.Printf("%s joined room %q", res.Username, res.Room)
}

func (h *Hub) handleMessage(client *Client, data json.RawMessage) {
	var req MessageRequest
	if !h.decodePayload(client, EventMessage, data, &req) {
		return
	}

	res, ok := h.state.SendMessage(client.id, req.Text, time.Now())
	if !ok {
		// Empty text or pre-join connection: silently ignored.
		return
	}

	h.sendEventTo(res.Targets, EventMessageNew, res.Message)
	metricMessages.Inc()
	log.Printf("[%s] %s: %s", res.Message.Room, res.Message.Username, truncate(res.Message.Text, 50))
}

func (h *Hub) handleTyping(client *Client, data json.RawMessage) {
	var req TypingRequest
	if !h.decodePayload(client, EventTyping, data, &req) {
		return
	}

	res, ok := h.state.SetTyping(client.id, req.Active)
	if !ok {
		return
	}
	h.sendEventTo(res.Targets, EventTypingState, res.State)
}

func (h *Hub) handlePrivate(client *Client, data json.RawMessage) {
	var req PrivateRequest
	if !h.decodePayload(client, EventPrivate, data, &req) {
		return
	}

	res, err := h.state.SendPrivate(client.id, req.TargetUsername, req.Text, time.Now())
	if err != nil {
		h.sendToClient(client, EventError, ErrorPayload{Message: err.Error()})
		return
	}

	h.sendEvent(res.TargetConnID, EventPrivateNew, res.Event)
	h.sendToClient(client, EventPrivateAck, res.Receipt)
	log.Printf("Private message: %s -> %s", res.Event.From, res.Receipt.To)
}

func (h *Hub) handleChangeRoom(client *Client, data json.RawMessage) {
	var req ChangeRoomRequest
	if !h.decodePayload(client, EventChangeRoom, data, &req) {
		return
	}

	now := time.Now()
	res, err := h.state.ChangeRoom(client.id, req.Room, now)
	if err != nil {
		h.sendToClient(client, EventError, ErrorPayload{Message: err.Error()})
		return
	}
	if res == nil {
		// Pre-join connection or a move into the current room.
		return
	}

	h.sendEventTo(res.OldRemaining, EventUserLeft, RoomNotice{
		Username:  res.Username,
		Message:   fmt.Sprintf("%s left the chat", res.Username),
		Timestamp: now,
	})
	h.sendEventTo(res.NewOthers, EventUserJoined, RoomNotice{
		Username:  res.Username,
		Message:   fmt.Sprintf("%s joined the chat", res.Username),
		Timestamp: now,
	})
	if res.OldMembers != nil {
		h.sendEventTo(res.OldRemaining, EventMembersUpdate, res.OldMembers)
	}
	h.sendEventTo(res.NewAll, EventMembersUpdate, res.NewMembers)
	h.sendToClient(client, EventHistorySnapshot, res.Recent)

	metricRooms.Set(float64(h.state.RoomCount()))
	log.Printf("%s moved from %q to %q", res.Username, res.OldRoom, res.NewRoom)
}

// handleDisconnect runs the terminal state transition for a departed
// connection and notifies its room. Idempotent: a connection that never
// joined, or was already disconnected, is log-only.
func (h *Hub) handleDisconnect(connID string) {
	res, ok := h.state.Disconnect(connID)
	if !ok {
		log.Printf("Unknown or unjoined client disconnected: %s", connID)
		return
	}

	h.sendEventTo(res.Remaining, EventUserLeft, RoomNotice{
		Username:  res.Username,
		Message:   fmt.Sprintf("%s left the chat", res.Username),
		Timestamp: time.Now(),
	})
	h.sendEventTo(res.Remaining, EventMembersUpdate, res.Members)

	metricRooms.Set(float64(h.state.RoomCount()))
	log.Printf("%s left room %q", res.Username, res.Room)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
