package unit

import (
	"testing"
	"time"

	"github.com/chatconnect/relay/internal/server"
)

// TestNewHub tests the hub creation function.
// It verifies that NewHub returns a properly initialized Hub with an empty
// chat state and working registration channels.
func TestNewHub(t *testing.T) {
	hub := server.NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.State() == nil {
		t.Fatal("Hub state is nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected empty client map, got %d", hub.ClientCount())
	}

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(10 * time.Millisecond):
	}
}

// TestHubChannels tests that the register and unregister channels are
// accessible through their getter methods.
func TestHubChannels(t *testing.T) {
	hub := server.NewHub()

	if hub.GetRegisterChan() == nil {
		t.Error("Register channel is nil")
	}
	if hub.GetUnregisterChan() == nil {
		t.Error("Unregister channel is nil")
	}
}

// TestHubRunStartsWithoutPanic tests that the hub's Run method starts without
// panicking and absorbs a nil registration.
func TestHubRunStartsWithoutPanic(t *testing.T) {
	hub := server.NewHub()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Hub.Run() panicked: %v", r)
			}
			done <- true
		}()
		go hub.Run()
		hub.GetRegisterChan() <- nil
		time.Sleep(10 * time.Millisecond)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub.Run() test timed out")
	}
}

// TestHubShutdownIdle verifies that an idle hub shuts down within the grace
// period.
func TestHubShutdownIdle(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Idle hub shutdown failed: %v", err)
	}
}

// TestNewClient tests the client creation function.
// It verifies that NewClient returns a properly initialized Client with a
// unique connection identity and a working send channel.
func TestNewClient(t *testing.T) {
	hub := server.NewHub()

	client := server.NewClient(nil, hub, "127.0.0.1:12345")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.ID() == "" {
		t.Error("Client connection identity is empty")
	}
	if client.GetSendChan() == nil {
		t.Error("Client send channel is nil")
	}

	other := server.NewClient(nil, hub, "127.0.0.1:12346")
	if other.ID() == client.ID() {
		t.Error("Connection identities must be unique")
	}
}

// TestClientSendChannelEmpty verifies a fresh client has no pending outbound
// frames.
func TestClientSendChannelEmpty(t *testing.T) {
	hub := server.NewHub()
	client := server.NewClient(nil, hub, "127.0.0.1:12345")

	select {
	case <-client.GetSendChan():
		t.Error("Expected empty send channel but received a message")
	case <-time.After(10 * time.Millisecond):
	}
}
