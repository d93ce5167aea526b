package server

import (
	"encoding/json"
	"testing"
	"time"
)

// TestSendEventToIsolatesFailedRecipient verifies that one unreachable
// connection does not abort delivery to the rest of the room: the remaining
// recipients still receive the frame and the unreachable connection is
// dropped from the hub with its send channel closed.
func TestSendEventToIsolatesFailedRecipient(t *testing.T) {
	h := NewHub()
	stuck := NewClient(nil, h, "127.0.0.1:10001")
	healthy := NewClient(nil, h, "127.0.0.1:10002")
	h.clients[stuck.id] = stuck
	h.clients[healthy.id] = healthy

	// Saturate the first recipient's send queue so the next delivery fails.
	for i := 0; i < cap(stuck.send); i++ {
		stuck.send <- []byte("{}")
	}

	h.sendEventTo([]string{stuck.id, healthy.id}, EventMessageNew, Message{
		ID:        "m1",
		Username:  "alice",
		Text:      "hello",
		Timestamp: time.Now(),
		Room:      "general",
	})

	select {
	case raw := <-healthy.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("Undecodable frame for healthy recipient: %v", err)
		}
		if env.Event != EventMessageNew {
			t.Errorf("Expected %s frame, got %s", EventMessageNew, env.Event)
		}
	default:
		t.Fatal("Healthy recipient did not receive the event")
	}

	h.mutex.RLock()
	_, stillRegistered := h.clients[stuck.id]
	h.mutex.RUnlock()
	if stillRegistered {
		t.Fatal("Expected the unreachable connection to be dropped")
	}

	for i := 0; i < cap(stuck.send); i++ {
		<-stuck.send
	}
	if _, ok := <-stuck.send; ok {
		t.Error("Expected the dropped connection's send channel to be closed")
	}
}

// TestSendEventToSkipsUnknownTargets verifies that target ids without a live
// connection are skipped without disturbing delivery to registered ones.
func TestSendEventToSkipsUnknownTargets(t *testing.T) {
	h := NewHub()
	client := NewClient(nil, h, "127.0.0.1:10003")
	h.clients[client.id] = client

	h.sendEventTo([]string{"gone", client.id}, EventTypingState, TypingState{
		Username: "alice",
		Active:   true,
	})

	select {
	case <-client.send:
	default:
		t.Fatal("Registered recipient did not receive the event")
	}
}
