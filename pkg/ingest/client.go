package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-wraith/pkg/face"
)

const writeWait = 5 * time.Second

// Client sends ingest messages to a /ws/frames endpoint.
type Client struct {
	conn   *websocket.Conn
	binary bool

	mu sync.Mutex
}

// Dial connects to url, e.g. "ws://localhost:8080/ws/frames". Binary
// clients send MessagePack; others send JSON.
func Dial(ctx context.Context, url string, binary bool) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: dial %s: %w", url, err)
	}
	return &Client{conn: conn, binary: binary}, nil
}

// Send writes one message.
func (c *Client) Send(m Message) error {
	data, err := Encode(m, c.binary)
	if err != nil {
		return fmt.Errorf("ingest: encode: %w", err)
	}
	mt := websocket.TextMessage
	if c.binary {
		mt = websocket.BinaryMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(mt, data)
}

// SendFrame sends a tracker frame.
func (c *Client) SendFrame(f face.Frame) error {
	return c.Send(NewFrameMessage(f))
}

// SendMotion sends an acceleration magnitude.
func (c *Client) SendMotion(magnitude float64) error {
	return c.Send(NewMotionMessage(magnitude))
}

// SendHit sends a microgame acknowledgement.
func (c *Client) SendHit() error {
	return c.Send(NewHitMessage())
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.conn.Close()
}
