// Package server wires HTTP handlers into a ServeMux for the relaychat
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, websocket endpoint, active-room query, and the test
// page.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/rooms", hub.RoomsHandler)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
