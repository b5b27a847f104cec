// Package server implements the in-memory room store and per-room message
// log that back the chat coordinator.
package server

import (
	"slices"
	"time"
)

// room is the server-side record for a named chat room. The member list is
// ordered by join time and never contains duplicates.
type room struct {
	owner        string
	members      []string
	active       bool
	lastActivity time.Time
}

// addMember appends a connection id to the member list unless it is already
// present. Reports whether the list changed.
func (r *room) addMember(connID string) bool {
	if slices.Contains(r.members, connID) {
		return false
	}
	r.members = append(r.members, connID)
	return true
}

// removeMember deletes a connection id from the member list. Reports whether
// the list changed.
func (r *room) removeMember(connID string) bool {
	i := slices.Index(r.members, connID)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

// store holds every tracked room and its message history. It has no locking
// of its own: the hub's command loop is the only caller.
type store struct {
	rooms     map[string]*room
	histories map[string][]Entry
}

func newStore() *store {
	return &store{
		rooms:     make(map[string]*room),
		histories: make(map[string][]Entry),
	}
}

// appendInfo appends one entry to a single room's history. Rooms that are no
// longer tracked are ignored.
func (s *store) appendInfo(roomName, text string) {
	if _, ok := s.histories[roomName]; !ok {
		return
	}
	s.histories[roomName] = append(s.histories[roomName], Entry{RoomName: roomName, Message: text})
}

// appendEverywhere appends an informational entry to every tracked room's
// history, skipping rooms that already contain an entry with that exact
// text. Used for announcements that must show up once in every open room.
func (s *store) appendEverywhere(text string) {
	for roomName, entries := range s.histories {
		if slices.ContainsFunc(entries, func(e Entry) bool { return e.Message == text }) {
			continue
		}
		s.histories[roomName] = append(entries, Entry{RoomName: roomName, Message: text})
	}
}

// history returns the stored entries for a room, or an empty slice if the
// room is not tracked.
func (s *store) history(roomName string) []Entry {
	if entries, ok := s.histories[roomName]; ok {
		return entries
	}
	return []Entry{}
}

// activeNames returns the names of all active rooms in sorted order.
func (s *store) activeNames() []string {
	names := make([]string, 0, len(s.rooms))
	for name, r := range s.rooms {
		if r.active {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
