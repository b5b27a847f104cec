// Package server implements the core HTTP and websocket functionality for
// relaychat: a multi-room chat coordinator with named sessions, owned
// rooms, per-room message history, and automatic expiry of idle rooms.
//
// The implementation is organized into specialized files for configuration,
// the hub and its command loop, the room coordinator and store, clients,
// the idle reaper, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows.
package server
