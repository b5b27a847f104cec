// Package server runs the idle-room reaper: a fixed-interval job that
// enqueues sweep commands on the hub so expiry is serialized with user
// commands instead of racing them.
package server

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Reaper schedules periodic idle sweeps. The sweep itself runs on the hub's
// command loop; the reaper only enqueues it.
type Reaper struct {
	hub  *Hub
	cron *cron.Cron
	spec string
}

// NewReaper creates a reaper that fires on the interval from the active
// config.
func NewReaper(hub *Hub) *Reaper {
	return &Reaper{
		hub:  hub,
		spec: fmt.Sprintf("@every %s", currentConfig().IdleCheckInterval),
	}
}

// Start registers the sweep job and starts the scheduler.
func (r *Reaper) Start() error {
	r.cron = cron.New(cron.WithSeconds())
	if _, err := r.cron.AddFunc(r.spec, r.hub.EnqueueSweep); err != nil {
		return fmt.Errorf("scheduling idle sweep: %w", err)
	}
	r.cron.Start()
	log.Printf("Idle reaper running (%s)", r.spec)
	return nil
}

// Stop halts the scheduler and waits for an in-flight tick to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Println("Idle reaper stopped")
}
