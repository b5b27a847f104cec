// Package testhelpers provides common utilities for testing the relaychat
// server.
//
// It contains reusable helpers shared across unit and integration tests:
// spinning up test servers, configuring the active config for a test's
// lifetime, dialing websocket connections with a valid origin, and speaking
// the event envelope protocol.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/croften/relaychat/internal/server"
	"github.com/gorilla/websocket"
)

// WireEvent mirrors the JSON envelope exchanged on the event surface.
type WireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// HistoryEntry mirrors one stored history line as it appears on the wire.
type HistoryEntry struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

// CreateTestServer creates a test HTTP server with the given handler. The
// caller is responsible for closing it.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// ConfigureForTest installs a config that accepts the test server's origin
// and restores defaults when the test finishes. The customize hook may
// adjust the config before it is applied.
func ConfigureForTest(t *testing.T, baseURL string, customize func(cfg *server.Config)) {
	t.Helper()
	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{baseURL}, cfg.AllowedOrigins...)
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)
	t.Cleanup(func() {
		server.SetConfig(nil)
	})
}

// DialWS opens a websocket connection to the test server's /ws endpoint,
// sending the server's own URL as the Origin header.
func DialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	headers := http.Header{}
	headers.Set("Origin", baseURL)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one envelope-framed event to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", name, err)
	}
	evt := WireEvent{Name: name, Data: raw}
	if err := conn.WriteJSON(evt); err != nil {
		t.Fatalf("Failed to send %s event: %v", name, err)
	}
}

// ReadEvents reads one websocket frame and decodes every envelope in it.
// The server coalesces queued payloads into a single frame separated by
// newlines, so a frame may carry several events.
func ReadEvents(t *testing.T, conn *websocket.Conn, timeout time.Duration) []WireEvent {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var events []WireEvent
	for _, line := range bytes.Split(frame, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		var evt WireEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			t.Fatalf("Undecodable event %q: %v", line, err)
		}
		events = append(events, evt)
	}
	return events
}

// WaitForEvent reads frames until an event with the given name arrives,
// failing the test if the deadline passes first.
func WaitForEvent(t *testing.T, conn *websocket.Conn, name string, timeout time.Duration) WireEvent {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, evt := range ReadEvents(t, conn, time.Until(deadline)) {
			if evt.Name == name {
				return evt
			}
		}
	}
	t.Fatalf("Timed out waiting for %s event", name)
	return WireEvent{}
}

// WaitForHistoryMessage reads display events until one contains the given
// message text, returning the full history it arrived in.
func WaitForHistoryMessage(t *testing.T, conn *websocket.Conn, message string, timeout time.Duration) []HistoryEntry {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		evt := WaitForEvent(t, conn, "display", time.Until(deadline))
		var entries []HistoryEntry
		if err := json.Unmarshal(evt.Data, &entries); err != nil {
			// Global pushes carry a room-name map instead of a slice.
			continue
		}
		for _, entry := range entries {
			if entry.Message == message {
				return entries
			}
		}
	}
	t.Fatalf("Timed out waiting for history message %q", message)
	return nil
}

// MakeRequest creates and executes an HTTP request with a short timeout,
// failing the test on any transport error.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

// FetchRooms queries the active-room listing endpoint and decodes the
// response.
func FetchRooms(t *testing.T, baseURL string) []string {
	t.Helper()

	resp := MakeRequest(t, http.MethodGet, baseURL+"/rooms")
	defer func() { _ = resp.Body.Close() }()
	AssertStatusCode(t, resp, http.StatusOK)

	var rooms []string
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("Failed to decode room list: %v", err)
	}
	return rooms
}

// AssertStatusCode checks if the HTTP response has the expected status
// code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// CloseWebSocket gracefully closes a websocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
