package domain

import "encoding/json"

// Envelope is the unit of data carried from an ingestion adapter to the hub.
// Both the Redis subscriber and the internal push endpoint decode into it.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Valid reports whether the envelope may be broadcast.
// An envelope without an event name must never reach delivery.
func (e Envelope) Valid() bool {
	return e.Event != ""
}

// Frame is the message shape written to connected clients.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ClientMessage is what a connected client may send over the websocket.
// Unknown types are ignored.
type ClientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// RoomAck is the payload of the "joined" / "left" acknowledgment frames.
type RoomAck struct {
	Room string `json:"room"`
}
