package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-wraith/internal/log"
)

// ErrBadOffer is returned when an SDP offer cannot be applied.
var ErrBadOffer = errors.New("ingest: invalid sdp offer")

// WebRTCReceiver answers SDP offers from trackers and reads ingest messages
// from every data channel they open.
type WebRTCReceiver struct {
	server *Server
	config webrtc.Configuration

	mu    sync.Mutex
	peers map[string]*webrtc.PeerConnection
}

// NewWebRTCReceiver creates a receiver that shares the server's sink and
// counters. With no ICE servers only host candidates are gathered.
func NewWebRTCReceiver(server *Server, iceServers ...string) *WebRTCReceiver {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return &WebRTCReceiver{
		server: server,
		config: cfg,
		peers:  make(map[string]*webrtc.PeerConnection),
	}
}

// Answer applies a remote offer and returns the local answer once ICE
// gathering has finished.
func (r *WebRTCReceiver) Answer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if offer.Type != webrtc.SDPTypeOffer || offer.SDP == "" {
		return webrtc.SessionDescription{}, ErrBadOffer
	}

	pc, err := webrtc.NewPeerConnection(r.config)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("ingest: new peer connection: %w", err)
	}

	id := r.server.open("webrtc")
	r.mu.Lock()
	r.peers[id] = pc
	r.mu.Unlock()

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Debug("data channel opened", "session", id, "label", dc.Label())
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			r.server.Handle(id, msg.Data, !msg.IsString)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", "session", id, "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			r.drop(id)
		}
	})

	fail := func(err error) (webrtc.SessionDescription, error) {
		r.drop(id)
		return webrtc.SessionDescription{}, err
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrBadOffer, err))
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail(fmt.Errorf("ingest: create answer: %w", err))
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail(fmt.Errorf("ingest: set local description: %w", err))
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fail(ctx.Err())
	}
	return *pc.LocalDescription(), nil
}

func (r *WebRTCReceiver) drop(id string) {
	r.mu.Lock()
	pc, ok := r.peers[id]
	delete(r.peers, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.server.close(id)
	if err := pc.Close(); err != nil {
		log.Debug("peer connection close failed", "session", id, "error", err)
	}
}

// Peers returns the number of open peer connections.
func (r *WebRTCReceiver) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Close closes every peer connection.
func (r *WebRTCReceiver) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.drop(id)
	}
}

// RegisterRoutes registers POST /webrtc/offer on api.
func (r *WebRTCReceiver) RegisterRoutes(api fiber.Router) {
	api.Post("/webrtc/offer", r.handleOffer)
}

func (r *WebRTCReceiver) handleOffer(c *fiber.Ctx) error {
	var offer webrtc.SessionDescription
	if err := c.BodyParser(&offer); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid offer"})
	}
	answer, err := r.Answer(c.UserContext(), offer)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, ErrBadOffer) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(answer)
}
