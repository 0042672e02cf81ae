// Package ingest receives landmark frames, motion samples and microgame hits
// from the tracker running next to the camera.
//
// Messages arrive over a websocket (/ws/frames) or a WebRTC data channel.
// Text messages are JSON; binary messages are MessagePack with the same
// field names.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/teslashibe/go-wraith/pkg/face"
)

// MessageType identifies an ingest message.
type MessageType string

const (
	TypeFrame  MessageType = "frame"  // Landmarks for zero or more faces
	TypeMotion MessageType = "motion" // Acceleration sample
	TypeHit    MessageType = "hit"    // Microgame acknowledgement
)

var (
	// ErrUnknownType is returned for a message with an unrecognised type.
	ErrUnknownType = errors.New("ingest: unknown message type")

	// ErrEmptyMotion is returned for a motion message without a sample.
	ErrEmptyMotion = errors.New("ingest: motion message without sample")
)

// Motion is one acceleration sample. Magnitude wins when set; otherwise
// the magnitude is computed from the components.
type Motion struct {
	Magnitude *float64 `json:"magnitude,omitempty" msgpack:"magnitude,omitempty"`
	X         float64  `json:"x,omitempty" msgpack:"x,omitempty"`
	Y         float64  `json:"y,omitempty" msgpack:"y,omitempty"`
	Z         float64  `json:"z,omitempty" msgpack:"z,omitempty"`
}

// Message is the ingest envelope.
type Message struct {
	Type      MessageType `json:"type" msgpack:"type"`
	Timestamp int64       `json:"ts,omitempty" msgpack:"ts,omitempty"` // Capture time, Unix milliseconds
	Faces     []face.Face `json:"faces,omitempty" msgpack:"faces,omitempty"`
	Image     []byte      `json:"image,omitempty" msgpack:"image,omitempty"` // Optional JPEG for classifier crops
	Motion    *Motion     `json:"motion,omitempty" msgpack:"motion,omitempty"`
}

// NewFrameMessage wraps a tracker frame.
func NewFrameMessage(f face.Frame) Message {
	msg := Message{Type: TypeFrame, Faces: f.Faces, Image: f.Image}
	if !f.Timestamp.IsZero() {
		msg.Timestamp = f.Timestamp.UnixMilli()
	}
	return msg
}

// NewMotionMessage wraps an acceleration magnitude.
func NewMotionMessage(magnitude float64) Message {
	return Message{Type: TypeMotion, Motion: &Motion{Magnitude: &magnitude}}
}

// NewHitMessage creates a microgame acknowledgement.
func NewHitMessage() Message {
	return Message{Type: TypeHit}
}

// Frame converts a frame message back into a tracker frame. A missing
// timestamp is left zero so the pipeline uses its own clock.
func (m Message) Frame() face.Frame {
	f := face.Frame{Faces: m.Faces, Image: m.Image}
	if m.Timestamp > 0 {
		f.Timestamp = time.UnixMilli(m.Timestamp)
	}
	return f
}

// Validate checks that the message can be dispatched.
func (m Message) Validate() error {
	switch m.Type {
	case TypeFrame, TypeHit:
		return nil
	case TypeMotion:
		if m.Motion == nil {
			return ErrEmptyMotion
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

// Encode serializes m as JSON, or MessagePack when binary is set.
func Encode(m Message, binary bool) ([]byte, error) {
	if binary {
		return msgpack.Marshal(&m)
	}
	return json.Marshal(m)
}

// Decode parses a JSON or MessagePack message and validates it.
func Decode(data []byte, binary bool) (Message, error) {
	var m Message
	var err error
	if binary {
		err = msgpack.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return Message{}, fmt.Errorf("ingest: decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
