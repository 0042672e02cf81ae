// Package pipeline coordinates the per-frame drowsiness detectors.
//
// A Pipeline owns one instance of every detector, the predictive risk
// aggregator, the escalation machine and the drowsy siren. Frames, motion
// samples and control calls may arrive on different goroutines; each
// public method is serialized on the pipeline's mutex. Classifier
// inference runs outside the lock.
package pipeline

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/classify"
	"github.com/teslashibe/go-wraith/pkg/detect"
	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/escalation"
	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/filter"
	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/risk"
	"github.com/teslashibe/go-wraith/pkg/sleep"
	"github.com/teslashibe/go-wraith/pkg/store"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifiers sets the optional image classifiers. Either may be nil.
func WithClassifiers(eye classify.EyeClassifier, mouth classify.MouthClassifier) Option {
	return func(p *Pipeline) {
		p.eyeCls = eye
		p.mouthCls = mouth
	}
}

// WithStore persists the drowsy counter, sleep profile and failure records.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPlayer sets the sound player for the siren and the alert tone.
func WithPlayer(pl effects.Player) Option {
	return func(p *Pipeline) { p.player = pl }
}

// WithNotifier sets the operator notifier for failed alertness checks.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithObserver registers fn to receive every snapshot. fn runs on the
// goroutine that produced the snapshot, outside the pipeline lock.
func WithObserver(fn func(Snapshot)) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, fn) }
}

// WithWallClock replaces time.Now for control calls that arrive between
// frames.
func WithWallClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.wall = now }
}

// Pipeline is the per-frame coordinator.
type Pipeline struct {
	mu  sync.Mutex
	cfg Config

	eyes    *detect.EyeTracker
	overlay *detect.Overlay
	tilt    *detect.TiltDetector
	gaze    *detect.GazeDetector
	yawn    *detect.YawnDetector
	agg     *risk.Aggregator
	adapter risk.Adapter
	motion  *escalation.MotionGate
	machine *escalation.Machine
	siren   *effects.Siren

	eyeCls   classify.EyeClassifier
	mouthCls classify.MouthClassifier
	store    store.Store
	player   effects.Player
	notifier notify.Notifier

	observers []func(Snapshot)
	wall      func() time.Time

	msg      slot
	running  bool
	pinned   int
	hasLast  bool
	lastTS   time.Time
	lastWall time.Time
	tilts    int
	score    int
	drowsy   int
	seq      uint64
	snap     Snapshot
}

// New creates a running pipeline. The drowsy counter and sleep profile are
// reloaded from the store when one is configured.
func New(cfg Config, opts ...Option) *Pipeline {
	cfg.Validate()
	p := &Pipeline{
		running: true,
		pinned:  -1,
		wall:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.player == nil {
		p.player = effects.NopPlayer{}
	}

	notifier := p.notifier
	if notifier == nil {
		notifier = notify.Log{}
	}
	if n, ok := p.store.(notify.Notifier); ok {
		notifier = notify.Multi{notifier, n}
	}

	p.eyes = detect.NewEyeTracker(cfg.Eyes)
	p.overlay = detect.NewOverlay(cfg.Overlay)
	p.tilt = detect.NewTiltDetector(cfg.Tilt)
	p.gaze = detect.NewGazeDetector(cfg.Gaze)
	p.yawn = detect.NewYawnDetector(cfg.Yawn)
	p.agg = risk.NewAggregator(cfg.Risk)
	p.motion = escalation.NewMotionGate(cfg.Escalation.Motion)
	p.machine = escalation.NewMachine(cfg.Escalation, p.player, notifier)
	p.siren = effects.NewSiren(p.player, cfg.SirenSound)
	p.siren.MaxPlay = cfg.SirenMaxPlay
	p.cfg = cfg

	if p.store != nil {
		p.restore(context.Background())
	}
	if cfg.AutoAdapt {
		p.adapter.Enable(cfg.thresholds())
	}
	p.snap = Snapshot{Running: true, Target: -1, DrowsyCount: p.drowsy}
	return p
}

func (p *Pipeline) restore(ctx context.Context) {
	if n, err := p.store.DrowsyCount(ctx); err != nil {
		log.Warn("failed to load drowsy count", "error", err)
	} else {
		p.drowsy = n
	}
	if prof, ok, err := p.store.LoadSleep(ctx); err != nil {
		log.Warn("failed to load sleep profile", "error", err)
	} else if ok {
		p.cfg.Sleep = prof
		p.cfg.Validate()
	}
}

// inference is the classifier output for one frame.
type inference struct {
	eyes  *[2]float64
	mouth []float64
}

// Process runs one frame through every detector and returns the resulting
// snapshot. Frames are ignored while the pipeline is stopped.
func (p *Pipeline) Process(ctx context.Context, frame face.Frame) Snapshot {
	p.mu.Lock()
	if !p.running {
		snap := p.snap
		p.mu.Unlock()
		return snap
	}
	pinned := p.pinned
	useEye := p.cfg.Eyes.UseClassifier && p.eyeCls != nil
	useMouth := p.cfg.Yawn.UseClassifier && p.mouthCls != nil
	p.mu.Unlock()

	target := face.SelectTarget(frame.Faces, pinned)
	var inf inference
	if target >= 0 && len(frame.Image) > 0 {
		inf = p.infer(ctx, frame.Image, frame.Faces[target], useEye, useMouth)
	}

	p.mu.Lock()
	if !p.running {
		snap := p.snap
		p.mu.Unlock()
		return snap
	}
	snap := p.step(ctx, frame, target, inf)
	p.mu.Unlock()

	p.publish(snap)
	return snap
}

// infer runs the enabled classifiers. Failures fall back to the landmark
// metrics for this frame.
func (p *Pipeline) infer(ctx context.Context, img []byte, f face.Face, useEye, useMouth bool) inference {
	var inf inference
	if useEye {
		left, okL := face.EyeBox(f, face.LeftEye)
		right, okR := face.EyeBox(f, face.RightEye)
		if okL && okR {
			probs, err := p.eyeCls.ClosedProbabilities(ctx, img, left, right)
			if err != nil {
				log.Debug("eye classifier failed, using EAR", "error", err)
			} else {
				inf.eyes = &probs
			}
		}
	}
	if useMouth {
		if box, ok := face.MouthBox(f); ok {
			probs, err := p.mouthCls.Predict(ctx, img, box)
			if err != nil {
				log.Debug("mouth classifier failed, using MOR", "error", err)
			} else {
				inf.mouth = probs
			}
		}
	}
	return inf
}

// step advances every detector by one frame. Must hold p.mu.
func (p *Pipeline) step(ctx context.Context, frame face.Frame, target int, inf inference) Snapshot {
	now := frame.Timestamp
	if now.IsZero() {
		now = p.wall()
	}
	var dt time.Duration
	if p.hasLast {
		dt = max(0, now.Sub(p.lastTS))
	}
	p.hasLast = true
	p.lastTS = now
	p.lastWall = p.wall()

	p.siren.Update(now)

	snap := Snapshot{
		Running:   true,
		Timestamp: now,
		Faces:     len(frame.Faces),
		Target:    target,
	}

	yawnFired := false
	if target >= 0 {
		f := frame.Faces[target]
		var ear float64
		var eyesOK bool
		snap.EARLeft, snap.EARRight, ear, eyesOK = face.MeanEyeAspectRatio(f)

		// Eyes that cannot be measured count as no face, never as closed.
		if eyesOK || inf.eyes != nil {
			snap.Eyes = p.eyes.Update(ear, inf.eyes, dt)
			snap.Overlay = p.overlay.Update(snap.Eyes.Closed, snap.Eyes.Accumulated, p.cfg.Eyes.UseClassifier, now)
		} else {
			snap.Eyes = p.eyes.NoFace()
			snap.Overlay = p.overlay.NoFace()
		}
		closed := snap.Eyes.Closed

		roll, hasRoll := face.Roll(f)
		snap.RollDeg = roll * 180 / math.Pi

		switch g, ok := face.MeanGaze(f); {
		case !p.cfg.Gaze.Enabled:
			snap.Gaze = p.gaze.Disabled()
		case ok:
			snap.Gaze = p.gaze.Update(g, roll, closed, now)
		default:
			snap.Gaze = p.gaze.Unavailable(now)
		}

		if hasRoll {
			snap.Tilt = p.tilt.Update(roll, closed, now)
		} else {
			snap.Tilt = p.tilt.Update(0, false, now)
		}
		if snap.Tilt.Fired {
			p.tilts++
		}

		snap.Yawn = p.yawn.Update(face.MouthOpenRatio(f), inf.mouth, now)
		yawnFired = snap.Yawn.Fired

		// A held skull hides on the next blink.
		if closed {
			p.gaze.Blink(now)
		}
	} else {
		snap.Eyes = p.eyes.NoFace()
		snap.Overlay = p.overlay.NoFace()
		p.yawn.NoFace()
		snap.Tilt = p.tilt.Update(0, false, now)
		if p.cfg.Gaze.Enabled {
			snap.Gaze = p.gaze.Unavailable(now)
		} else {
			snap.Gaze = p.gaze.Disabled()
		}
	}

	switch snap.Eyes.Edge {
	case filter.EdgeRising:
		p.msg.Show(MsgDrowsy)
		p.siren.Start(now)
	case filter.EdgeFalling:
		p.msg.Clear()
	}

	if snap.Overlay.Rising {
		p.countDrowsy(ctx)
	}

	if c := snap.Gaze.Calibration; c != nil {
		p.msg.Show(c.Message)
		snap.Calibration = c
		log.Info("gaze calibration finished", "ok", c.OK, "samples", c.Samples)
	}

	snap.Sleep = p.cfg.Sleep.Assess(now)
	if th, ok := p.adapter.Apply(now, snap.Sleep.Risk); ok {
		next := p.cfg
		next.setThresholds(th)
		p.applyConfig(next)
	}

	snap.Risk = p.agg.Tick(risk.Input{
		Now:         now,
		FacePresent: target >= 0,
		EyesClosed:  snap.Eyes.Closed,
		GazeActive:  snap.Gaze.Active,
		YawnFired:   yawnFired,
		TiltsFired:  p.tilts,
		Sleep:       p.cfg.Sleep,
	})
	p.tilts = 0
	if snap.Risk.Advisory {
		p.msg.Offer(risk.MsgAdvisory)
	}

	win := p.cfg.Escalation.RecentWindow
	p.score = escalation.Score(escalation.Signals{
		Accumulated:      p.eyes.Accumulated(),
		GazeActive:       snap.Gaze.Active,
		YawnRecent:       p.yawn.FiredWithin(now, win),
		TiltRecent:       p.tilt.FiredWithin(now, win),
		Probability:      snap.Risk.Probability,
		ProbabilityValid: snap.Risk.Valid,
	})
	p.escalate(&snap, p.score, now)

	return p.finish(snap)
}

// escalate advances the escalation machine. Must hold p.mu.
func (p *Pipeline) escalate(snap *Snapshot, score int, now time.Time) {
	step := p.machine.Update(score, p.motion.Moving(), now)
	switch {
	case step.Alerted:
		p.msg.Show(escalation.MsgAlert)
	case step.Started:
		p.msg.Clear()
	case step.Outcome != nil:
		p.msg.Show(step.Outcome.Message)
	}
	snap.Escalation = step
	snap.Score = step.Score
}

// finish fills the shared snapshot fields and stores it. Must hold p.mu.
func (p *Pipeline) finish(snap Snapshot) Snapshot {
	p.seq++
	snap.Seq = p.seq
	snap.Thresholds = p.cfg.thresholds()
	snap.Moving = p.motion.Moving()
	snap.Override = p.motion.Override()
	snap.Siren = p.siren.Playing()
	snap.AlertTone = p.machine.ToneActive()
	snap.DrowsyCount = p.drowsy
	snap.Message = p.msg.Text()
	p.snap = snap
	return snap
}

func (p *Pipeline) countDrowsy(ctx context.Context) {
	p.drowsy++
	if p.store == nil {
		return
	}
	n, err := p.store.IncrementDrowsy(ctx)
	if err != nil {
		log.Warn("failed to persist drowsy count", "error", err)
		return
	}
	p.drowsy = n
}

func (p *Pipeline) publish(snap Snapshot) {
	for _, fn := range p.observers {
		fn(snap)
	}
}

// now returns the pipeline clock: the last frame timestamp advanced by the
// wall time since it arrived. Must hold p.mu.
func (p *Pipeline) now() time.Time {
	if !p.hasLast {
		return p.wall()
	}
	return p.lastTS.Add(p.wall().Sub(p.lastWall))
}

// Now returns the pipeline clock, aligned with frame timestamps.
func (p *Pipeline) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now()
}

// Advance runs the timers that must progress without frames: the siren
// limit and the microgame deadline.
func (p *Pipeline) Advance() Snapshot {
	p.mu.Lock()
	if !p.running {
		snap := p.snap
		p.mu.Unlock()
		return snap
	}
	now := p.now()
	p.siren.Update(now)

	snap := p.snap
	snap.Calibration = nil
	if p.machine.State() == escalation.StateMicrogame {
		p.escalate(&snap, p.score, now)
	}
	snap = p.finish(snap)
	p.mu.Unlock()

	p.publish(snap)
	return snap
}

// Snapshot returns the latest snapshot.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// SetMotion records an acceleration magnitude sample.
func (p *Pipeline) SetMotion(magnitude float64) bool {
	return p.motion.Push(magnitude)
}

// SetMotionVector records an acceleration sample by component.
func (p *Pipeline) SetMotionVector(x, y, z float64) bool {
	return p.motion.PushVector(x, y, z)
}

// Moving reports the effective motion state.
func (p *Pipeline) Moving() bool {
	return p.motion.Moving()
}

// SetOverride forces the motion gate.
func (p *Pipeline) SetOverride(o escalation.Override) {
	p.motion.SetOverride(o)
	log.Info("motion override set", "mode", o.String())
}

// StartCalibration begins a one-second gaze calibration burst.
func (p *Pipeline) StartCalibration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.msg.Show(MsgStartCalibFirst)
		p.snap.Message = p.msg.Text()
		return
	}
	p.gaze.StartCalibration(p.now())
	p.msg.Show(MsgCalibrating)
}

// MicrogameHit acknowledges the visible microgame target.
func (p *Pipeline) MicrogameHit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Hit(p.now())
}

// Config returns the current effective tuning.
func (p *Pipeline) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig replaces the tuning, as after a config file reload.
func (p *Pipeline) SetConfig(cfg Config) {
	cfg.Validate()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggleAdapt(&cfg)
	p.applyConfig(cfg)
}

// ApplyTuning applies runtime tuning by key and returns the applied keys.
// Values that do not parse leave their setting unchanged.
func (p *Pipeline) ApplyTuning(values map[string]string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.cfg
	applied := next.Tune(values)
	if len(applied) == 0 {
		return nil
	}

	if p.adapter.Enabled() && next.AutoAdapt && slices.ContainsFunc(applied, func(k string) bool { return adaptedKeys[k] }) {
		p.adapter.Rebase(rebase(p.adapter.Baseline(), next.thresholds(), applied))
	}
	p.toggleAdapt(&next)
	p.applyConfig(next)

	for _, k := range applied {
		if k == "ideal_sleep_hours" || k == "last_sleep_hours" {
			p.saveSleep(context.Background())
			break
		}
	}
	log.Debug("tuning applied", "keys", applied)
	return applied
}

// toggleAdapt starts or stops auto-adapt when next changes it. Stopping
// restores the captured baseline into next. Must hold p.mu.
func (p *Pipeline) toggleAdapt(next *Config) {
	switch {
	case next.AutoAdapt && !p.adapter.Enabled():
		p.adapter.Enable(next.thresholds())
	case !next.AutoAdapt && p.adapter.Enabled():
		if base, ok := p.adapter.Disable(); ok {
			next.setThresholds(base)
		}
	}
}

func rebase(base, cur risk.Thresholds, keys []string) risk.Thresholds {
	for _, k := range keys {
		switch k {
		case "eye_classifier_threshold":
			base.EyeClassifierThreshold = cur.EyeClassifierThreshold
		case "closed_duration":
			base.ClosedDuration = cur.ClosedDuration
		case "yawn_min_ratio":
			base.YawnMinRatio = cur.YawnMinRatio
		case "yawn_min_hold":
			base.YawnMinHold = cur.YawnMinHold
		case "gaze_hold":
			base.GazeHold = cur.GazeHold
		}
	}
	return base
}

// applyConfig pushes cfg to every component. Must hold p.mu.
func (p *Pipeline) applyConfig(cfg Config) {
	p.cfg = cfg
	p.eyes.SetConfig(cfg.Eyes)
	p.overlay.SetConfig(cfg.Overlay)
	p.tilt.SetConfig(cfg.Tilt)
	p.gaze.SetConfig(cfg.Gaze)
	p.yawn.SetConfig(cfg.Yawn)
	p.agg.SetConfig(cfg.Risk)
	p.motion.SetConfig(cfg.Escalation.Motion)
	p.machine.SetConfig(cfg.Escalation)
	p.siren.MaxPlay = cfg.SirenMaxPlay
}

// ImportSleep applies a sleep-profile JSON document. On error the profile
// is unchanged.
func (p *Pipeline) ImportSleep(data []byte) (sleep.Profile, error) {
	im, err := sleep.ParseImport(data)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.msg.Show(sleep.MsgImportFailed)
		return p.cfg.Sleep, err
	}
	prof := p.cfg.Sleep
	im.Apply(&prof)
	p.cfg.Sleep = prof
	p.cfg.Validate()
	p.saveSleep(context.Background())
	p.msg.Show(sleep.MsgImported)
	return p.cfg.Sleep, nil
}

// SyncSleep records last night's sleep from an external source.
func (p *Pipeline) SyncSleep(hours float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Sleep.SetLastSleep(hours)
	p.cfg.Validate()
	p.saveSleep(context.Background())
	p.msg.Show(sleep.MsgFitSynced)
}

func (p *Pipeline) saveSleep(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveSleep(ctx, p.cfg.Sleep); err != nil {
		log.Warn("failed to persist sleep profile", "error", err)
	}
}

// SetTarget pins face index i. A negative index returns to automatic
// selection.
func (p *Pipeline) SetTarget(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinned = max(-1, i)
}

// DrowsyCount returns the cumulative drowsy event count.
func (p *Pipeline) DrowsyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drowsy
}

// ResetDrowsyCount zeroes the drowsy event count.
func (p *Pipeline) ResetDrowsyCount(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		if err := p.store.ResetDrowsy(ctx); err != nil {
			return err
		}
	}
	p.drowsy = 0
	return nil
}

// Running reports whether frames are being processed.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start resumes frame processing after Stop.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.hasLast = false
	p.msg.Clear()
	log.Info("pipeline started")
}

// Stop halts frame processing. All sound stops before Stop returns and
// every timer, accumulator and state machine returns to its initial state.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running = false
	p.siren.Stop()
	p.machine.Reset()

	if p.adapter.Enabled() {
		next := p.cfg
		next.setThresholds(p.adapter.Baseline())
		p.applyConfig(next)
	}
	p.adapter.Reset()

	p.eyes.Reset()
	p.overlay.Reset()
	p.tilt.Reset()
	p.gaze.Reset()
	p.yawn.Reset()
	p.agg.Reset()

	p.msg.Clear()
	p.hasLast = false
	p.tilts = 0
	p.score = 0
	p.seq++
	p.snap = Snapshot{Seq: p.seq, Target: -1, DrowsyCount: p.drowsy, Override: p.motion.Override()}
	log.Info("pipeline stopped")
}
