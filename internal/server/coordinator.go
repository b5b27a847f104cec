// Package server contains the room coordinator: the state machine that
// validates inbound commands, mutates room/session/history state, and emits
// outbound events through the broadcast router.
package server

import (
	"encoding/json"
	"log"
	"slices"
	"strings"
	"time"
)

// Router delivers outbound event payloads to live connections and maintains
// the per-room broadcast groups. The Hub is the production implementation;
// tests substitute a recording fake.
type Router interface {
	ToAll(payload []byte)
	ToRoom(roomName string, payload []byte)
	JoinGroup(roomName, connID string)
	LeaveGroup(roomName, connID string)
	DropGroup(roomName string)
	MoveGroup(oldName, newName string)
}

// Coordinator owns all room, session, and history state. None of its methods
// lock: every call must come from the hub's command loop (or a test driving
// it single-threaded), which serializes user commands, idle sweeps, and
// disconnect cleanup against each other.
//
// Precondition failures (room absent, room inactive, requester not the
// owner, name already taken) are silent no-ops. No failure event exists on
// the wire, so callers cannot distinguish "rejected" from "ignored".
type Coordinator struct {
	sessions      map[string]string // connection id -> display name
	store         *store
	router        Router
	now           func() time.Time
	idleThreshold time.Duration
}

// NewCoordinator creates a coordinator that delivers through the given
// router and expires rooms idle for longer than idleThreshold.
func NewCoordinator(router Router, idleThreshold time.Duration) *Coordinator {
	return &Coordinator{
		sessions:      make(map[string]string),
		store:         newStore(),
		router:        router,
		now:           time.Now,
		idleThreshold: idleThreshold,
	}
}

// Dispatch decodes an inbound event's payload and applies the matching
// operation for the originating connection. Unknown events and undecodable
// payloads are dropped.
func (c *Coordinator) Dispatch(connID string, evt Event) {
	switch evt.Name {
	case evtRegister:
		var name string
		if decodePayload(connID, evt, &name) {
			c.Register(connID, name)
		}
	case evtUser:
		var p renameUserPayload
		if decodePayload(connID, evt, &p) {
			c.RenameUser(connID, p.Last, p.NV)
		}
	case evtCreateRoom:
		var name string
		if decodePayload(connID, evt, &name) {
			c.CreateRoom(name, connID)
		}
	case evtModifyRoom:
		var p modifyRoomPayload
		if decodePayload(connID, evt, &p) {
			c.RenameRoom(p.RoomName, p.NewRoomName, connID)
		}
	case evtDeleteRoom:
		var name string
		if decodePayload(connID, evt, &name) {
			c.DeleteRoom(name, connID)
		}
	case evtJoinRoom:
		var name string
		if decodePayload(connID, evt, &name) {
			c.JoinRoom(name, connID)
		}
	case evtJoinQuiet:
		var name string
		if decodePayload(connID, evt, &name) {
			c.JoinQuiet(name, connID)
		}
	case evtLeaveRoom:
		var name string
		if decodePayload(connID, evt, &name) {
			c.LeaveRoom(name, connID)
		}
	case evtSendMessage:
		var p sendMessagePayload
		if decodePayload(connID, evt, &p) {
			c.SendMessage(p.RoomName, connID, p.Message)
		}
	case evtRefreshAll:
		c.RefreshAll()
	default:
		log.Printf("Ignoring unknown event %q from connection %s", evt.Name, connID)
	}
}

func decodePayload(connID string, evt Event, dst any) bool {
	if err := json.Unmarshal(evt.Data, dst); err != nil {
		log.Printf("Invalid %s payload from connection %s: %v", evt.Name, connID, err)
		return false
	}
	return true
}

// Register binds a display name to a connection. Re-registering overwrites
// the existing binding. Every connection receives the full history map so a
// fresh client can render all rooms.
func (c *Coordinator) Register(connID, name string) {
	c.sessions[connID] = name
	c.emitAll(evtDisplay, c.store.histories)
}

// RenameUser rebinds a connection's display name and rewrites every stored
// message across all rooms, substituting the old name wherever it appears as
// a substring. A rename announcement is appended to every room once, and all
// clients are told to refresh.
func (c *Coordinator) RenameUser(connID, last, nv string) {
	c.sessions[connID] = nv
	for _, entries := range c.store.histories {
		for i := range entries {
			entries[i].Message = strings.ReplaceAll(entries[i].Message, last, nv)
		}
	}
	c.store.appendEverywhere("INFO: " + last + " changed username to " + nv)
	c.emitAll(evtRefreshAll, nil)
}

// CreateRoom creates a fresh active room owned by the requesting connection.
// A name already held by an active room makes this a no-op; a name held only
// by an inactive tombstone is reusable and the tombstone is replaced. The
// owner auto-joins both the member list and the broadcast group, with no
// join entry recorded.
func (c *Coordinator) CreateRoom(name, connID string) {
	if r, ok := c.store.rooms[name]; ok && r.active {
		return
	}
	c.store.rooms[name] = &room{
		owner:        connID,
		members:      []string{connID},
		active:       true,
		lastActivity: c.now(),
	}
	c.router.JoinGroup(name, connID)
	c.store.histories[name] = make([]Entry, 0)
	c.store.appendEverywhere("INFO: " + c.sessions[connID] + " created the channel " + name)
	c.emitAll(evtRoomCreated, name)
	c.emitAll(evtRefreshAll, nil)
	c.emitAll(evtDisplay, c.store.histories)
	c.presence(name)
}

// RenameRoom moves a room to a new name. Only the owner may rename. The
// room record, its history, and its broadcast group move atomically to the
// new key; members, owner, and activity timestamp are preserved. An existing
// destination entry is replaced without any merge check. Renaming a room to
// its current name is a no-op.
func (c *Coordinator) RenameRoom(oldName, newName, connID string) {
	if oldName == newName {
		return
	}
	r, ok := c.store.rooms[oldName]
	if !ok || r.owner != connID {
		return
	}
	c.store.rooms[newName] = r
	delete(c.store.rooms, oldName)
	c.store.histories[newName] = c.store.histories[oldName]
	delete(c.store.histories, oldName)
	c.router.MoveGroup(oldName, newName)
	c.store.appendEverywhere("INFO: Room " + oldName + " renamed to " + newName + " by " + c.sessions[connID])
	c.emitAll(evtDisplay, c.store.history(newName))
	c.emitAll(evtRoomModified, roomModifiedPayload{OldRoomName: oldName, NewRoomName: newName})
}

// DeleteRoom deactivates a room. Only the owner may delete. Members are
// forced out of the broadcast group, the final history (including the
// deletion notice) is pushed to everyone, and then the history is cleared.
// The room record itself stays behind as an inactive tombstone, which keeps
// the name reusable while blocking joins and messages.
func (c *Coordinator) DeleteRoom(name, connID string) {
	r, ok := c.store.rooms[name]
	if !ok || r.owner != connID {
		return
	}
	for _, member := range r.members {
		c.router.LeaveGroup(name, member)
	}
	r.active = false
	c.store.appendEverywhere("INFO: " + c.sessions[connID] + " deleted the channel " + name)
	c.emitAll(evtDisplay, c.store.history(name))
	c.store.histories[name] = make([]Entry, 0)
	c.emitAll(evtRoomDeleted, name)
}

// JoinRoom adds a connection to an active room's member list, announces the
// join in the room's history, and refreshes the room's activity timestamp.
func (c *Coordinator) JoinRoom(name, connID string) {
	r, ok := c.store.rooms[name]
	if !ok || !r.active {
		return
	}
	c.store.appendInfo(name, "INFO: "+c.sessions[connID]+" joined the channel "+name)
	r.addMember(connID)
	c.router.JoinGroup(name, connID)
	r.lastActivity = c.now()
	c.emitAll(evtDisplay, c.store.history(name))
	c.presence(name)
}

// JoinQuiet performs the membership and group effects of a join without
// appending a join entry or touching the activity timestamp. Clients use it
// when they are being silently relocated into a renamed room. The history
// push happens whether or not the join took effect, mirroring the join
// handler's unconditional display emit.
func (c *Coordinator) JoinQuiet(name, connID string) {
	if r, ok := c.store.rooms[name]; ok && r.active {
		r.addMember(connID)
		c.router.JoinGroup(name, connID)
		c.presence(name)
	}
	c.emitAll(evtDisplay, c.store.history(name))
}

// LeaveRoom removes a connection from an active room, announces the
// departure in the history, and notifies remaining room members with a
// user_left event carrying the connection id.
func (c *Coordinator) LeaveRoom(name, connID string) {
	r, ok := c.store.rooms[name]
	if !ok || !r.active {
		return
	}
	c.store.appendInfo(name, "INFO: "+c.sessions[connID]+" left the channel "+name)
	r.removeMember(connID)
	c.router.LeaveGroup(name, connID)
	c.emitAll(evtDisplay, c.store.history(name))
	c.emitRoom(name, evtUserLeft, connID)
	c.presence(name)
}

// SendMessage appends an attributed chat line to an active room and pushes
// the updated history to the room's broadcast group.
func (c *Coordinator) SendMessage(roomName, connID, text string) {
	r, ok := c.store.rooms[roomName]
	if !ok || !r.active {
		return
	}
	c.store.appendInfo(roomName, c.sessions[connID]+" : "+text)
	r.lastActivity = c.now()
	c.emitRoom(roomName, evtDisplay, c.store.history(roomName))
}

// RefreshAll re-broadcasts history and presence for every tracked room,
// including inactive tombstones, to their respective broadcast groups.
func (c *Coordinator) RefreshAll() {
	for name := range c.store.rooms {
		c.emitRoom(name, evtDisplay, c.store.history(name))
		c.presence(name)
	}
}

// Disconnect prunes a connection from every room it is a member of and
// drops its session binding. It is idempotent and appends no history entry:
// a silent disconnect is not an explicit leave. The hub has already removed
// the connection from all broadcast groups by the time this runs.
func (c *Coordinator) Disconnect(connID string) {
	for name, r := range c.store.rooms {
		if r.removeMember(connID) {
			c.presence(name)
		}
	}
	delete(c.sessions, connID)
}

// SweepIdle removes every active room whose last activity is older than the
// idle threshold. Unlike an explicit delete, reaping erases the room record
// and its history outright; the expiry announcement lands once in every
// surviving room's history.
func (c *Coordinator) SweepIdle(now time.Time) {
	var expired []string
	for name, r := range c.store.rooms {
		if r.active && now.Sub(r.lastActivity) > c.idleThreshold {
			expired = append(expired, name)
		}
	}
	slices.Sort(expired)
	for _, name := range expired {
		r := c.store.rooms[name]
		for _, member := range r.members {
			c.router.LeaveGroup(name, member)
		}
		c.router.DropGroup(name)
		r.active = false
		c.store.appendEverywhere("INFO: " + name + " was automatically deleted due to inactivity.")
		c.emitAll(evtRoomDeleted, name)
		delete(c.store.histories, name)
		delete(c.store.rooms, name)
		log.Printf("Reaped idle room %q", name)
	}
}

// ActiveRooms returns the sorted names of all active rooms. It answers the
// read-only room-listing query.
func (c *Coordinator) ActiveRooms() []string {
	return c.store.activeNames()
}

// presence maps a room's member connections to their display names and
// delivers the list to the room's broadcast group.
func (c *Coordinator) presence(roomName string) {
	r, ok := c.store.rooms[roomName]
	if !ok {
		return
	}
	names := make([]string, 0, len(r.members))
	for _, member := range r.members {
		names = append(names, c.sessions[member])
	}
	c.emitRoom(roomName, evtUsersInRoom, names)
}

func (c *Coordinator) emitAll(name string, data any) {
	payload, err := encodeEvent(name, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", name, err)
		return
	}
	c.router.ToAll(payload)
}

func (c *Coordinator) emitRoom(roomName, name string, data any) {
	payload, err := encodeEvent(name, data)
	if err != nil {
		log.Printf("Error encoding %s event for room %q: %v", name, roomName, err)
		return
	}
	c.router.ToRoom(roomName, payload)
}
