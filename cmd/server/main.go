package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/croften/relaychat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting relaychat server...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	hub := server.NewHub()
	hub.Start()

	reaper := server.NewReaper(hub)
	if err := reaper.Start(); err != nil {
		log.Fatalf("Failed to start idle reaper: %v", err)
	}

	mux := server.SetupRoutes(hub)
	httpServer := server.CreateServer(config.Port, mux)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := <-stop
		log.Printf("Received %s, shutting down...", sig)

		reaper.Stop()
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
		if err := hub.Shutdown(shutdownTimeout); err != nil {
			log.Printf("Hub shutdown error: %v", err)
		}
	}()

	if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	<-done
	log.Println("Server stopped")
}
