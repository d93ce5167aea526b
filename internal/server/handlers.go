// Package server exposes HTTP handlers, including WebSocket upgrades, the
// read-only JSON statistics surface, and the built-in test page.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler handles WebSocket upgrade requests against the process-wide hub.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	hub.ServeWS(w, r)
}

// ServeWS handles a WebSocket upgrade request and registers the resulting
// client with this hub. It validates that the request uses the GET method,
// upgrades the HTTP connection, and hands the client to the hub loop, which
// launches the read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)

	// An upgrade racing shutdown must not block forever on an undrained
	// register channel.
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Connections int       `json:"connections"`
	Rooms       int       `json:"rooms"`
}

// HealthHandler provides a simple health check endpoint that reports server
// status along with live connection and room counts.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{
		Status:      "OK",
		Timestamp:   time.Now(),
		Connections: hub.State().ConnectionCount(),
		Rooms:       hub.State().RoomCount(),
	})
}

// StatsResponse is the /api/stats payload: aggregate counts, per-room member
// counts, and process uptime in seconds.
type StatsResponse struct {
	TotalUsers int        `json:"totalUsers"`
	TotalRooms int        `json:"totalRooms"`
	Rooms      []RoomStat `json:"rooms"`
	Uptime     float64    `json:"uptime"`
	Timestamp  time.Time  `json:"timestamp"`
}

// StatsHandler serves aggregate chat statistics over the shared state.
func StatsHandler(w http.ResponseWriter, _ *http.Request) {
	totalUsers, totalRooms, rooms := hub.State().Stats()
	writeJSON(w, StatsResponse{
		TotalUsers: totalUsers,
		TotalRooms: totalRooms,
		Rooms:      rooms,
		Uptime:     hub.Uptime().Seconds(),
		Timestamp:  time.Now(),
	})
}

// UsersHandler serves the full connection roster.
func UsersHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, hub.State().Roster())
}

// MessagesHandler serves the full retained history for one room. Rooms with
// no history yield an empty array rather than an error.
func MessagesHandler(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	writeJSON(w, hub.State().RoomHistory(room))
}

// TestPageHandler serves an HTML test page for exercising the chat protocol.
// It provides a simple web interface to join a room, send messages, and view
// the event stream in real time.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>ChatConnect Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>ChatConnect Relay Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="username" placeholder="Username">
        <input type="text" id="room" placeholder="Room (default: general)">
        <button id="joinButton" onclick="join()">Join</button>
    </div>
    <div style="margin-top: 10px;">
        <input type="text" id="messageInput" placeholder="Type a message..." style="width: 300px;" disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        const eventsDiv = document.getElementById('events');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'black';
            el.textContent = text;
            eventsDiv.appendChild(el);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function setConnected(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
        }

        function join() {
            const username = document.getElementById('username').value.trim();
            const room = document.getElementById('room').value.trim();

            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() {
                setConnected(true);
                ws.send(JSON.stringify({event: 'join', data: {username: username, room: room}}));
            };
            ws.onmessage = function(e) {
                const env = JSON.parse(e.data);
                switch (env.event) {
                case 'message-event':
                    addLine(env.data.username + ': ' + env.data.text, 'blue');
                    break;
                case 'error':
                    addLine('error: ' + env.data.message, 'red');
                    break;
                case 'history-snapshot':
                    env.data.forEach(m => addLine(m.username + ': ' + m.text, 'gray'));
                    break;
                default:
                    addLine(env.event + ' ' + JSON.stringify(env.data), 'gray');
                }
            };
            ws.onclose = function() {
                setConnected(false);
                ws = null;
            };
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: 'message', data: {text: text}}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
