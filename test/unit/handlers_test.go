package unit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/croften/relaychat/internal/server"
)

// TestHealthHandlerUnit tests the health handler in isolation. It responds
// to any method with the status banner.
func TestHealthHandlerUnit(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "GET request to health endpoint",
			method:         "GET",
			expectedStatus: http.StatusOK,
			expectedBody:   "relaychat server is running!",
		},
		{
			name:           "POST request to health endpoint",
			method:         "POST",
			expectedStatus: http.StatusOK,
			expectedBody:   "relaychat server is running!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, "/", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()
			server.HealthHandler(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", status, tt.expectedStatus)
			}
			if rr.Body.String() != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), tt.expectedBody)
			}
		})
	}
}

// TestRoomsHandlerMethodGating tests that the room listing rejects anything
// but GET.
func TestRoomsHandlerMethodGating(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	for _, method := range []string{"POST", "PUT", "DELETE"} {
		req := httptest.NewRequest(method, "/rooms", http.NoBody)
		rr := httptest.NewRecorder()

		hub.RoomsHandler(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /rooms: got status %d, want %d", method, rr.Code, http.StatusMethodNotAllowed)
		}
	}
}

// TestRoomsHandlerEmptyListing tests that a hub with no rooms answers the
// query with an empty JSON array, not null.
func TestRoomsHandlerEmptyListing(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	req := httptest.NewRequest("GET", "/rooms", http.NoBody)
	rr := httptest.NewRecorder()

	hub.RoomsHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("GET /rooms: got status %d, want %d", rr.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("GET /rooms body: got %q, want []", got)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("GET /rooms content type: got %q", ct)
	}
}

// TestServeWSRejectsNonGet tests that the websocket endpoint turns away
// non-GET requests before attempting an upgrade.
func TestServeWSRejectsNonGet(t *testing.T) {
	hub := server.NewHub()

	req := httptest.NewRequest("POST", "/ws", http.NoBody)
	rr := httptest.NewRecorder()

	hub.ServeWS(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /ws: got status %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

// TestServeWSRejectsPlainGet tests that a GET without websocket upgrade
// headers fails the upgrade rather than hanging.
func TestServeWSRejectsPlainGet(t *testing.T) {
	hub := server.NewHub()

	req := httptest.NewRequest("GET", "/ws", http.NoBody)
	rr := httptest.NewRecorder()

	hub.ServeWS(rr, req)

	if rr.Code != http.StatusBadRequest && rr.Code != http.StatusForbidden {
		t.Errorf("Plain GET /ws: got status %d, want upgrade failure", rr.Code)
	}
}
