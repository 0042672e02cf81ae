// Package hub fans snapshots and events out to websocket subscribers using
// a single goroutine that owns the subscriber set.
package hub

import "encoding/json"

// MessageType indicates the websocket frame type.
type MessageType int

const (
	// JSONMessage is sent as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is sent as a binary frame.
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event is a typed JSON envelope, e.g. {"type":"snapshot","data":{...}}.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EncodeEvent marshals an event.
func EncodeEvent(typ string, data any) (Message, error) {
	b, err := json.Marshal(Event{Type: typ, Data: data})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(b), nil
}
