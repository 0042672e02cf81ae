package escalation

import (
	"time"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/notify"
)

// DefaultAlertThreshold is the score that raises the alert while moving.
const DefaultAlertThreshold = 3

// AlertToneSound is the sound name the alert tone plays.
const AlertToneSound = "alert"

// Messages shown by the presentation layer.
const (
	MsgAlert     = "DROWSINESS DETECTED: PULL OVER SAFELY NOW"
	MsgAlertHint = "Stop moving to complete safety check"
	MsgPassed    = "Test passed. You're alert enough to continue, but take a 15-minute break, drink water or coffee, stretch and get fresh air."
	MsgFailed    = "Test failed. You are not fit to drive. Your operator has been notified."
)

// State is the escalation machine state.
type State int

const (
	StateIdle State = iota
	StateAlertActive
	StateMicrogame
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAlertActive:
		return "alert"
	case StateMicrogame:
		return "microgame"
	default:
		return "idle"
	}
}

// MarshalText encodes the state for JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Identity fills the identity fields of notification records.
type Identity struct {
	DriverID  string `yaml:"driver_id"`
	VehicleID string `yaml:"vehicle_id"`
	Location  string `yaml:"location"`
}

// Config tunes the escalation machine.
type Config struct {
	AlertThreshold int             `yaml:"alert_threshold"`
	RecentWindow   time.Duration   `yaml:"recent_window"`
	Motion         MotionConfig    `yaml:"motion"`
	Microgame      MicrogameConfig `yaml:"microgame"`
	Identity       Identity        `yaml:"identity"`
}

// DefaultConfig returns the default escalation tuning.
func DefaultConfig() Config {
	return Config{
		AlertThreshold: DefaultAlertThreshold,
		RecentWindow:   DefaultRecentWindow,
		Motion:         DefaultMotionConfig(),
		Microgame:      DefaultMicrogameConfig(),
		Identity:       Identity{DriverID: "DRIVER_ID", VehicleID: "VEHICLE_ID", Location: "unknown"},
	}
}

// Outcome is the result of a finished microgame.
type Outcome struct {
	Passed  bool           `json:"passed"`
	Hits    int            `json:"hits"`
	Targets int            `json:"targets"`
	Message string         `json:"message"`
	Record  *notify.Record `json:"record,omitempty"` // Set when the operator was notified
}

// Step is the machine's output for one tick.
type Step struct {
	State   State     `json:"state"`
	Score   int       `json:"score"`
	Alerted bool      `json:"alerted"` // Entered AlertActive on this tick
	Started bool      `json:"started"` // Microgame started on this tick
	Game    GameState `json:"game"`
	Outcome *Outcome  `json:"outcome,omitempty"`
}

// Machine is the escalation state machine. It owns the alert tone and the
// microgame; both are released on every exit from their state.
type Machine struct {
	cfg      Config
	state    State
	game     *Microgame
	tone     *effects.Siren
	notifier notify.Notifier
}

// NewMachine creates an idle machine. A nil notifier logs records.
func NewMachine(cfg Config, player effects.Player, notifier notify.Notifier) *Machine {
	if notifier == nil {
		notifier = notify.Log{}
	}
	// The tone lasts as long as the alert, not the siren cap.
	tone := effects.NewSiren(player, AlertToneSound)
	tone.MaxPlay = 0
	return &Machine{
		cfg:      cfg,
		game:     NewMicrogame(cfg.Microgame),
		tone:     tone,
		notifier: notifier,
	}
}

// Update advances the machine with this tick's score and motion state.
func (m *Machine) Update(score int, moving bool, now time.Time) Step {
	m.tone.Update(now)

	step := Step{Score: score}

	switch m.state {
	case StateMicrogame:
		// Motion is ignored until the game has run its full duration.
		if m.game.Done(now) {
			step.Outcome = m.finish(score, now)
			step.Score = 0
		}
	case StateAlertActive:
		if !moving {
			m.tone.Stop()
			m.game.Start(now)
			m.state = StateMicrogame
			step.Started = true
			log.Info("vehicle stopped, starting alertness check")
		}
	case StateIdle:
		if moving && score >= m.cfg.AlertThreshold {
			m.state = StateAlertActive
			m.tone.Start(now)
			step.Alerted = true
			log.Warn("drowsiness alert raised", "score", score)
		}
	}

	step.State = m.state
	step.Game = m.game.State(now)
	return step
}

func (m *Machine) finish(score int, now time.Time) *Outcome {
	m.game.Stop()
	m.state = StateIdle

	out := &Outcome{
		Passed:  m.game.Passed(),
		Hits:    m.game.Hits(),
		Targets: m.cfg.Microgame.Targets,
		Message: MsgPassed,
	}
	if out.Passed {
		log.Info("alertness check passed", "hits", out.Hits)
		return out
	}

	rec := notify.NewRecord(now)
	rec.DriverID = m.cfg.Identity.DriverID
	rec.VehicleID = m.cfg.Identity.VehicleID
	rec.Location = m.cfg.Identity.Location
	rec.Score = out.Hits
	rec.Threshold = m.cfg.Microgame.PassHits
	rec.DrowsinessScore = score

	out.Message = MsgFailed
	out.Record = &rec
	log.Warn("alertness check failed", "hits", out.Hits, "record", rec.ID)
	m.notifier.Notify(rec)
	return out
}

// Hit acknowledges a microgame target at now.
func (m *Machine) Hit(now time.Time) bool {
	if m.state != StateMicrogame {
		return false
	}
	return m.game.Hit(now)
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Config returns the current tuning.
func (m *Machine) Config() Config {
	return m.cfg
}

// SetConfig changes the tuning. Microgame changes apply to the next game.
func (m *Machine) SetConfig(cfg Config) {
	m.cfg = cfg
	if !m.game.Active() {
		m.game = NewMicrogame(cfg.Microgame)
	}
}

// ToneActive reports whether the alert tone is playing.
func (m *Machine) ToneActive() bool {
	return m.tone.Playing()
}

// Reset silences the tone, abandons any game and returns to Idle.
func (m *Machine) Reset() {
	m.tone.Stop()
	m.game.Stop()
	m.game = NewMicrogame(m.cfg.Microgame)
	m.state = StateIdle
}
