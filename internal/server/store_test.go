package server

import (
	"slices"
	"testing"
	"time"
)

// TestRoomMembershipIsOrderedSet tests that the member list keeps join
// order while rejecting duplicates and tolerating removals of absent ids.
func TestRoomMembershipIsOrderedSet(t *testing.T) {
	r := &room{}

	if !r.addMember("a") || !r.addMember("b") || !r.addMember("c") {
		t.Fatal("Adding fresh members should report a change")
	}
	if r.addMember("b") {
		t.Error("Duplicate add reported a change")
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(r.members, want) {
		t.Fatalf("Member order: got %v want %v", r.members, want)
	}

	if !r.removeMember("b") {
		t.Error("Removing a present member should report a change")
	}
	if r.removeMember("b") {
		t.Error("Removing an absent member reported a change")
	}
	if want := []string{"a", "c"}; !slices.Equal(r.members, want) {
		t.Fatalf("Members after removal: got %v want %v", r.members, want)
	}
}

// TestAppendEverywhereDedupByExactText tests the global info append: the
// entry lands once per room and is skipped wherever the exact text already
// exists anywhere in that room's history.
func TestAppendEverywhereDedupByExactText(t *testing.T) {
	s := newStore()
	s.histories["one"] = []Entry{}
	s.histories["two"] = []Entry{
		{RoomName: "two", Message: "INFO: something happened"},
		{RoomName: "two", Message: "chatter"},
	}

	s.appendEverywhere("INFO: something happened")

	if got := len(s.histories["one"]); got != 1 {
		t.Errorf("Room one: got %d entries, want 1", got)
	}
	if got := len(s.histories["two"]); got != 2 {
		t.Errorf("Room two: got %d entries, want 2 (dedup should skip)", got)
	}

	// Repeating the append must change nothing anywhere.
	s.appendEverywhere("INFO: something happened")
	if len(s.histories["one"]) != 1 || len(s.histories["two"]) != 2 {
		t.Error("Repeated append bypassed dedup")
	}
}

// TestAppendEverywhereTagsEntriesWithRoomName tests that each appended
// entry carries the room it was written into.
func TestAppendEverywhereTagsEntriesWithRoomName(t *testing.T) {
	s := newStore()
	s.histories["alpha"] = []Entry{}
	s.histories["beta"] = []Entry{}

	s.appendEverywhere("INFO: broadcast")

	for _, roomName := range []string{"alpha", "beta"} {
		entries := s.histories[roomName]
		if len(entries) != 1 || entries[0].RoomName != roomName {
			t.Errorf("Room %s entries: %v", roomName, entries)
		}
	}
}

// TestAppendInfoIgnoresUntrackedRooms tests that single-room appends to
// unknown rooms are dropped rather than creating history out of thin air.
func TestAppendInfoIgnoresUntrackedRooms(t *testing.T) {
	s := newStore()
	s.appendInfo("ghost", "INFO: boo")
	if len(s.histories) != 0 {
		t.Errorf("Untracked append created history: %v", s.histories)
	}
}

// TestHistoryReturnsEmptyForUnknownRoom tests the non-nil empty result for
// rooms that were never created or already reaped.
func TestHistoryReturnsEmptyForUnknownRoom(t *testing.T) {
	s := newStore()
	got := s.history("missing")
	if got == nil || len(got) != 0 {
		t.Errorf("history() for unknown room: got %v, want empty slice", got)
	}
}

// TestActiveNamesFiltersAndSorts tests that only active rooms are listed
// and the result is deterministic.
func TestActiveNamesFiltersAndSorts(t *testing.T) {
	s := newStore()
	now := time.Now()
	s.rooms["zulu"] = &room{active: true, lastActivity: now}
	s.rooms["echo"] = &room{active: true, lastActivity: now}
	s.rooms["gone"] = &room{active: false, lastActivity: now}

	if got, want := s.activeNames(), []string{"echo", "zulu"}; !slices.Equal(got, want) {
		t.Errorf("activeNames: got %v want %v", got, want)
	}
}
