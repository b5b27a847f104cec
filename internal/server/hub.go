// Package server coordinates client connections, the single-writer command
// loop, and event fan-out for the relaychat websocket system via the Hub
// type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// command is one unit of serialized work for the hub's loop. Connection
// commands carry the originating client; internal commands (idle sweeps and
// room-list queries) leave conn nil.
type command struct {
	conn  *Client
	event Event
	reply chan<- []string
}

// Hub owns every live client connection, the per-room broadcast groups, and
// the Coordinator. All state mutation funnels through the Run loop, so user
// commands, idle sweeps, queries, and disconnect cleanup are totally ordered
// with respect to each other. Delivery is fire-and-forget: a client whose
// send buffer is full is dropped rather than awaited.
type Hub struct {
	clients    map[string]*Client
	groups     map[string]map[string]struct{}
	coord      *Coordinator
	register   chan *Client
	unregister chan *Client
	commands   chan command
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub with an empty coordinator configured from the active
// config. The returned Hub is ready to accept connections once Run is
// started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.coord = NewCoordinator(h, currentConfig().IdleThreshold)
	return h
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Submit enqueues a decoded client event onto the command loop. It drops the
// event if the hub is shutting down.
func (h *Hub) Submit(c *Client, evt Event) {
	select {
	case h.commands <- command{conn: c, event: evt}:
	case <-h.ctx.Done():
	}
}

// EnqueueSweep schedules an idle-room sweep as an ordinary command, giving
// expiry a total order with user commands instead of racing them.
func (h *Hub) EnqueueSweep() {
	select {
	case h.commands <- command{}:
	case <-h.ctx.Done():
	}
}

// ActiveRooms answers the room-listing query. The lookup runs on the command
// loop so it observes a consistent snapshot; callers block until it is
// served or the hub shuts down.
func (h *Hub) ActiveRooms() []string {
	reply := make(chan []string, 1)
	select {
	case h.commands <- command{reply: reply}:
	case <-h.ctx.Done():
		return nil
	}

	// The loop may exit between the enqueue and the reply.
	select {
	case rooms := <-reply:
		return rooms
	case <-h.ctx.Done():
		return nil
	}
}

// Start launches the Run loop in its own goroutine.
func (h *Hub) Start() {
	go h.Run()
	log.Println("Hub started and ready to manage connections")
}

// Run is the hub's main event loop: client registration and teardown,
// command dispatch into the coordinator, and sweep/query handling all happen
// here, one at a time. Call it in a dedicated goroutine; it runs until
// Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

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
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
			h.coord.Disconnect(client.id)

		case cmd := <-h.commands:
			h.handleCommand(cmd)
		}
	}
}

func (h *Hub) handleCommand(cmd command) {
	switch {
	case cmd.reply != nil:
		cmd.reply <- h.coord.ActiveRooms()
	case cmd.conn == nil:
		h.coord.SweepIdle(time.Now())
	default:
		h.coord.Dispatch(cmd.conn.id, cmd.event)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient drops a client from the connection table and every broadcast
// group. Safe to call for a client that was already removed; the send
// channel is closed at most once.
func (h *Hub) removeClient(client *Client) {
	for roomName := range h.groups {
		h.LeaveGroup(roomName, client.id)
	}

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
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.id, client.addr, clientCount)
}

// JoinGroup adds a connection to a room's broadcast group.
func (h *Hub) JoinGroup(roomName, connID string) {
	group, ok := h.groups[roomName]
	if !ok {
		group = make(map[string]struct{})
		h.groups[roomName] = group
	}
	group[connID] = struct{}{}
}

// LeaveGroup removes a connection from a room's broadcast group, dropping
// the group entirely once it empties.
func (h *Hub) LeaveGroup(roomName, connID string) {
	group, ok := h.groups[roomName]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(h.groups, roomName)
	}
}

// DropGroup removes a room's broadcast group and everyone in it.
func (h *Hub) DropGroup(roomName string) {
	delete(h.groups, roomName)
}

// MoveGroup rekeys a room's broadcast group, keeping its membership intact.
func (h *Hub) MoveGroup(oldName, newName string) {
	group, ok := h.groups[oldName]
	if !ok {
		return
	}
	delete(h.groups, oldName)
	h.groups[newName] = group
}

// ToAll delivers a payload to every connected client.
func (h *Hub) ToAll(payload []byte) {
	h.deliver(h.clientSnapshot(), payload)
}

// ToRoom delivers a payload to the clients in a room's broadcast group.
func (h *Hub) ToRoom(roomName string, payload []byte) {
	group, ok := h.groups[roomName]
	if !ok {
		return
	}

	h.mutex.RLock()
	targets := make([]*Client, 0, len(group))
	for connID := range group {
		if client, ok := h.clients[connID]; ok {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	h.deliver(targets, payload)
}

// deliver fans a payload out to the given clients and evicts any whose send
// buffer is full.
func (h *Hub) deliver(targets []*Client, payload []byte) {
	var failed []*Client
	for _, client := range targets {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		log.Printf("Client %s from %s removed due to full send buffer", client.id, client.addr)
		h.removeClient(client)
	}
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send so a concurrent close cannot
	// race the channel send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client.id]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// shutdownClients tears down every active client. Runs on the hub loop as
// its final action, so removeClient is safe here. Closing the send channel
// first lets each writePump send a close frame and exit without waiting for
// its ping ticker.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.clientSnapshot()
	for _, client := range clients {
		h.removeClient(client)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to drain.
	<-h.done

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
