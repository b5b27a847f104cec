// Package server exposes HTTP handlers: websocket upgrades, the active-room
// query, health checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// ServeWS handles websocket upgrade requests. It upgrades the HTTP
// connection, assigns the new client its connection identity, and registers
// it with the hub, which launches the read/write pumps.
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

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
	}
}

// RoomsHandler answers the read-only room-listing query with a JSON array
// of active room names.
func (h *Hub) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Room listing only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	rooms := h.ActiveRooms()
	if rooms == nil {
		rooms = []string{}
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		log.Printf("Error writing room list response: %v", err)
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "relaychat server is running!")
}

// TestPageHandler serves an HTML page for exercising the room protocol by
// hand: register a name, create or join rooms, and send messages over the
// event surface.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>relaychat test console</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            white-space: pre-wrap;
        }
        input[type="text"] { padding: 5px; margin-right: 6px; }
        button { padding: 5px 12px; cursor: pointer; }
    </style>
</head>
<body>
    <h1>relaychat test console</h1>
    <div>
        <input type="text" id="name" placeholder="display name">
        <button onclick="send('register', name.value)">Register</button>
    </div>
    <div>
        <input type="text" id="room" placeholder="room name">
        <button onclick="send('create_room', room.value)">Create</button>
        <button onclick="send('join_room', room.value)">Join</button>
        <button onclick="send('leave_room', room.value)">Leave</button>
        <button onclick="send('delete_room', room.value)">Delete</button>
    </div>
    <div>
        <input type="text" id="text" placeholder="message">
        <button onclick="send('send_message', {roomName: room.value, message: text.value})">Send</button>
        <button onclick="listRooms()">List rooms</button>
    </div>
    <div id="log"></div>

    <script>
        const logDiv = document.getElementById('log');
        const append = (line) => {
            logDiv.textContent += line + '\n';
            logDiv.scrollTop = logDiv.scrollHeight;
        };

        const ws = new WebSocket('ws://' + location.host + '/ws');
        ws.onopen = () => append('connected');
        ws.onclose = () => append('disconnected');
        ws.onmessage = (e) => e.data.split('\n').forEach(append);

        function send(event, data) {
            ws.send(JSON.stringify({event: event, data: data}));
        }

        function listRooms() {
            fetch('/rooms').then(r => r.json()).then(rooms => append('rooms: ' + rooms.join(', ')));
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
