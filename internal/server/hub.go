// Package server coordinates client registration, event fan-out, and
// connection cleanup for the chat relay via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub routes serialized events to connection sets: a whole room, a room minus
// the originator, or a single target. It owns the live client map and the
// shared ChatState, runs the periodic empty-room sweep, and coordinates
// graceful shutdown.
type Hub struct {
	clients    map[string]*Client
	state      *ChatState
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    time.Time
}

// NewHub creates and initializes a new Hub instance with an empty chat state.
// The returned Hub is ready to manage WebSocket connections once Run is
// started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		state:      NewChatState(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		started:    time.Now(),
	}
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// State returns the shared chat state for the read-only HTTP surface.
func (h *Hub) State() *ChatState {
	return h.state
}

// Uptime reports how long the hub has existed.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.started)
}

// ClientCount returns the number of live transport connections, joined or not.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main loop, handling client registration and
// unregistration and the periodic empty-room sweep. This method should be
// called in a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	sweepInterval := currentConfig().SweepInterval
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			metricConnections.Set(float64(clientCount))
			log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.dropClient(client, "transport closed")

		case <-sweep.C:
			if reclaimed := h.state.SweepEmptyRooms(); reclaimed > 0 {
				log.Printf("Sweep reclaimed %d empty room(s)", reclaimed)
			}
			metricRooms.Set(float64(h.state.RoomCount()))
		}
	}
}

var hub = NewHub()

// dropClient removes a client from the live map, closes its send channel, and
// runs the disconnect transition. Safe to call repeatedly for the same
// client; only the first call broadcasts.
func (h *Hub) dropClient(client *Client, reason string) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	metricConnections.Set(float64(clientCount))
	log.Printf("Client %s disconnected (%s). Total clients: %d", client.id, reason, clientCount)

	h.handleDisconnect(client.id)
}

// sendEventTo serializes the event once and delivers it to every listed
// connection. Per-recipient failures are isolated: an unreachable connection
// is dropped without aborting delivery to the rest.
func (h *Hub) sendEventTo(targets []string, event string, data any) {
	if len(targets) == 0 {
		return
	}
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}

	var failed []*Client
	for _, id := range targets {
		h.mutex.RLock()
		client, ok := h.clients[id]
		h.mutex.RUnlock()
		if !ok {
			continue
		}
		if h.safeSend(client, payload) {
			metricEventsDelivered.Inc()
		} else {
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		log.Printf("Client %s unreachable during %s delivery; dropping", client.id, event)
		h.dropClient(client, "send buffer full")
	}
}

// sendEvent delivers an event to exactly one connection by id.
func (h *Hub) sendEvent(connID, event string, data any) {
	h.sendEventTo([]string{connID}, event, data)
}

// sendToClient delivers an event directly to a client handle, used for error
// events where only the originating connection may see the payload.
func (h *Hub) sendToClient(client *Client, event string, data any) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}
	if !h.safeSend(client, payload) {
		h.dropClient(client, "send buffer full")
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	_, exists := h.clients[client.id]
	if !exists || client.closed {
		return false
	}

	// Try to send the message (channel might be closed, so we need to recover from panic)
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// shutdownClients broadcasts the shutdown notice and closes every active
// client connection. Closing the send channel rather than the transport lets
// each write pump drain its queued frames, notice included, then emit a close
// frame and tear the connection down itself.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	notice, err := marshalEvent(EventSystem, SystemNotice{
		Message:   "Server is shutting down. Please refresh to reconnect.",
		Timestamp: time.Now(),
	})
	if err == nil {
		for _, client := range clients {
			h.safeSend(client, notice)
		}
	}

	closed := 0
	for _, client := range clients {
		h.mutex.Lock()
		if _, ok := h.clients[client.id]; !ok {
			h.mutex.Unlock()
			continue
		}
		delete(h.clients, client.id)
		client.closed = true
		h.mutex.Unlock()

		close(client.send)
		closed++
	}

	metricConnections.Set(0)
	log.Printf("Closed %d client connections", closed)
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	// Signal shutdown
	h.cancel()

	// Wait for Run() to complete
	<-h.done

	// Wait for all client goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
