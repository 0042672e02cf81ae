package web

import (
	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/hub"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
)

// Status event types.
const (
	EventSnapshot = "snapshot"
	EventSound    = "sound"
)

// SoundEvent asks dashboard clients to start or stop a sound.
type SoundEvent struct {
	Action string `json:"action"` // "play" or "stop"
	Sound  string `json:"sound"`
}

// HubPlayer plays sounds by broadcasting sound events; the dashboard owns
// the audio element.
type HubPlayer struct {
	Hub *hub.Hub
}

var _ effects.Player = HubPlayer{}

// Play implements effects.Player.
func (p HubPlayer) Play(sound string) error {
	return p.Hub.BroadcastEvent(EventSound, SoundEvent{Action: "play", Sound: sound})
}

// Stop implements effects.Player.
func (p HubPlayer) Stop(sound string) error {
	return p.Hub.BroadcastEvent(EventSound, SoundEvent{Action: "stop", Sound: sound})
}

// PublishSnapshot returns a pipeline observer that broadcasts snapshots.
func PublishSnapshot(h *hub.Hub) func(pipeline.Snapshot) {
	return func(snap pipeline.Snapshot) {
		if err := h.BroadcastEvent(EventSnapshot, snap); err != nil {
			log.Warn("failed to encode snapshot", "error", err)
		}
	}
}
