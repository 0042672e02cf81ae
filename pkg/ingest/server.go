package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-wraith/internal/log"
)

// maxMessageSize bounds one ingest message; frames may carry a JPEG.
const maxMessageSize = 2 << 20

// Session is one connected tracker.
type Session struct {
	ID        string    `json:"id"`
	Transport string    `json:"transport"`
	Connected time.Time `json:"connected"`
}

// Stats counts ingest traffic across all sessions.
type Stats struct {
	Sessions     int    `json:"sessions"`
	Messages     uint64 `json:"messages"`
	Frames       uint64 `json:"frames"`
	DecodeErrors uint64 `json:"decode_errors"`
}

// Server accepts tracker connections and feeds their messages to a Sink.
type Server struct {
	sink Sink
	ctx  context.Context

	mu       sync.RWMutex
	sessions map[string]Session

	messages     atomic.Uint64
	frames       atomic.Uint64
	decodeErrors atomic.Uint64
}

// NewServer creates an ingest server. ctx bounds the lifetime of every
// message dispatched to sink.
func NewServer(ctx context.Context, sink Sink) *Server {
	return &Server{
		sink:     sink,
		ctx:      ctx,
		sessions: make(map[string]Session),
	}
}

// RegisterRoutes registers /ws/frames on app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/frames", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFrames, websocket.Config{
		ReadBufferSize: 64 << 10,
	}))
}

func (s *Server) handleFrames(c *websocket.Conn) {
	id := s.open("websocket")
	defer s.close(id)

	c.SetReadLimit(maxMessageSize)
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("ingest connection closed", "session", id, "error", err)
			return
		}
		s.Handle(id, data, mt == websocket.BinaryMessage)
	}
}

// Handle decodes and dispatches one raw message from session id.
func (s *Server) Handle(id string, data []byte, binary bool) {
	s.messages.Add(1)
	msg, err := Decode(data, binary)
	if err != nil {
		s.decodeErrors.Add(1)
		log.Debug("dropping ingest message", "session", id, "error", err)
		return
	}
	if msg.Type == TypeFrame {
		s.frames.Add(1)
	}
	Dispatch(s.ctx, s.sink, msg)
}

func (s *Server) open(transport string) string {
	sess := Session{ID: uuid.NewString(), Transport: transport, Connected: time.Now()}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	log.Info("tracker connected", "session", sess.ID, "transport", transport, "total", n)
	return sess.ID
}

func (s *Server) close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	log.Info("tracker disconnected", "session", id, "remaining", n)
}

// Sessions returns the connected trackers.
func (s *Server) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Stats returns traffic counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return Stats{
		Sessions:     n,
		Messages:     s.messages.Load(),
		Frames:       s.frames.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}
