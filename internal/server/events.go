// Package server defines the JSON event envelope and payload types exchanged
// over the websocket event surface.
package server

import "encoding/json"

// Inbound event names.
const (
	evtRegister    = "register"
	evtUser        = "user"
	evtCreateRoom  = "create_room"
	evtModifyRoom  = "modify_room"
	evtDeleteRoom  = "delete_room"
	evtJoinRoom    = "join_room"
	evtJoinQuiet   = "join_r"
	evtLeaveRoom   = "leave_room"
	evtSendMessage = "send_message"
	evtRefreshAll  = "refresh_all_rooms"
)

// Outbound event names.
const (
	evtDisplay      = "display"
	evtUsersInRoom  = "users_in_room"
	evtRoomCreated  = "room_created"
	evtRoomDeleted  = "room_deleted"
	evtRoomModified = "room_modified"
	evtUserLeft     = "user_left"
)

// Event is the envelope for every frame received from a client. The payload
// stays raw until the coordinator knows which shape to decode it into.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Entry is one stored history line for a room. The message text already
// carries speaker attribution or an "INFO:" prefix.
type Entry struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

type renameUserPayload struct {
	Last string `json:"last"`
	NV   string `json:"nv"`
}

type modifyRoomPayload struct {
	RoomName    string `json:"roomName"`
	NewRoomName string `json:"newRoomName"`
}

type sendMessagePayload struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

type roomModifiedPayload struct {
	OldRoomName string `json:"oldRoomName"`
	NewRoomName string `json:"newRoomName"`
}

type outboundEvent struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// encodeEvent serializes an outbound event into the wire envelope.
func encodeEvent(name string, data any) ([]byte, error) {
	return json.Marshal(outboundEvent{Name: name, Data: data})
}
