// Package unit contains unit tests for individual components of the
// relaychat server.
//
// These tests exercise specific types in isolation, without real websocket
// connections, to verify each component behaves correctly on its own.
package unit

import (
	"testing"
	"time"

	"github.com/croften/relaychat/internal/server"
)

// TestNewHub tests that NewHub returns a hub whose channels are usable
// immediately.
func TestNewHub(t *testing.T) {
	hub := server.NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.GetRegisterChan() == nil {
		t.Error("Register channel is nil")
	}
	if hub.GetUnregisterChan() == nil {
		t.Error("Unregister channel is nil")
	}
}

// TestHubRunStartsWithoutPanic tests that the hub's Run loop starts and
// idles without runtime errors.
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
		time.Sleep(10 * time.Millisecond)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub.Run() test timed out")
	}
}

// TestActiveRoomsOnFreshHub tests that the room-listing query is served
// through the command loop and comes back empty for a hub with no rooms.
func TestActiveRoomsOnFreshHub(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	rooms := hub.ActiveRooms()
	if len(rooms) != 0 {
		t.Errorf("Fresh hub reported rooms: %v", rooms)
	}
}

// TestEnqueueSweepDoesNotBlock tests that sweep scheduling is fire-and-
// forget from the caller's perspective while the loop is running.
func TestEnqueueSweepDoesNotBlock(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.EnqueueSweep()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("EnqueueSweep blocked")
	}
}

// TestHubShutdownReleasesQueries tests that a pending or subsequent query
// does not hang once the hub has shut down.
func TestHubShutdownReleasesQueries(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()

	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	done := make(chan []string, 1)
	go func() { done <- hub.ActiveRooms() }()

	select {
	case rooms := <-done:
		if rooms != nil {
			t.Errorf("Query after shutdown returned %v, want nil", rooms)
		}
	case <-time.After(time.Second):
		t.Error("ActiveRooms hung after shutdown")
	}
}

// TestNewClientAssignsUniqueIdentity tests that every client receives its
// own non-empty connection identity token.
func TestNewClientAssignsUniqueIdentity(t *testing.T) {
	hub := server.NewHub()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		client := server.NewClient(nil, hub, "127.0.0.1:12345")
		id := client.ID()
		if id == "" {
			t.Fatal("Client created with empty identity")
		}
		if seen[id] {
			t.Fatalf("Connection identity %q reused", id)
		}
		seen[id] = true
	}
}

// TestClientSendChannel tests that a fresh client's send channel exists
// and starts empty.
func TestClientSendChannel(t *testing.T) {
	hub := server.NewHub()
	client := server.NewClient(nil, hub, "127.0.0.1:12345")

	sendChan := client.GetSendChan()
	if sendChan == nil {
		t.Fatal("Client send channel is nil")
	}

	select {
	case <-sendChan:
		t.Error("Expected empty send channel but received a payload")
	case <-time.After(10 * time.Millisecond):
	}
}
