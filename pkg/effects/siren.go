package effects

import (
	"sync"
	"time"

	"github.com/teslashibe/go-wraith/internal/log"
)

// DefaultMaxPlay caps how long a siren may sound.
const DefaultMaxPlay = 30 * time.Second

// Player plays named sounds. Implementations must tolerate Stop for a sound
// that is not playing.
type Player interface {
	Play(sound string) error
	Stop(sound string) error
}

// NopPlayer discards all sounds.
type NopPlayer struct{}

func (NopPlayer) Play(string) error { return nil }
func (NopPlayer) Stop(string) error { return nil }

// Siren is a looping sound with a maximum play time. At most one instance
// plays at a time.
type Siren struct {
	Sound   string
	MaxPlay time.Duration

	mu      sync.Mutex
	player  Player
	playing bool
	started time.Time
}

// NewSiren creates a siren for sound on player.
func NewSiren(player Player, sound string) *Siren {
	if player == nil {
		player = NopPlayer{}
	}
	return &Siren{Sound: sound, MaxPlay: DefaultMaxPlay, player: player}
}

// Start plays the sound at now. It returns false if already playing or if
// the player failed.
func (s *Siren) Start(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return false
	}
	if err := s.player.Play(s.Sound); err != nil {
		log.Warn("sound playback failed", "sound", s.Sound, "error", err)
		return false
	}
	s.playing = true
	s.started = now
	return true
}

// Update stops the sound once it has played for MaxPlay.
func (s *Siren) Update(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing && s.MaxPlay > 0 && now.Sub(s.started) >= s.MaxPlay {
		s.stopLocked()
	}
}

// Stop silences the sound before returning.
func (s *Siren) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Siren) stopLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	if err := s.player.Stop(s.Sound); err != nil {
		log.Warn("sound stop failed", "sound", s.Sound, "error", err)
	}
}

// Playing reports whether the sound is currently playing.
func (s *Siren) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}
