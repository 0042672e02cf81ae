package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/teslashibe/go-wraith/pkg/classify"
	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/escalation"
	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/sleep"
	"github.com/teslashibe/go-wraith/pkg/store"
)

const frameInterval = 33 * time.Millisecond

var t0 = time.Unix(1000, 0)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Risk.Enabled = false
	return cfg
}

func frame(at time.Time, eyeOpen float64) face.Frame {
	p := face.NeutralPose()
	p.EyeOpen = eyeOpen
	return face.Frame{Faces: []face.Face{face.Synthesize(p)}, Timestamp: at}
}

// run feeds n frames starting at start and returns the last snapshot and
// the timestamp of the next frame.
func run(t *testing.T, p *Pipeline, start time.Time, n int, eyeOpen float64) (Snapshot, time.Time) {
	t.Helper()
	var snap Snapshot
	at := start
	for range n {
		snap = p.Process(t.Context(), frame(at, eyeOpen))
		at = at.Add(frameInterval)
	}
	return snap, at
}

func TestPipeline_DrowsyOnset(t *testing.T) {
	player := &effects.MockPlayer{}
	p := New(testConfig(), WithPlayer(player))

	snap, at := run(t, p, t0, 10, 0.32)
	if snap.Eyes.Closed || snap.Message != "" {
		t.Fatalf("open eyes: closed=%v message=%q", snap.Eyes.Closed, snap.Message)
	}

	// 1.5s of closure at 33ms per frame needs 46 frames.
	snap, _ = run(t, p, at, 50, 0.05)
	if !snap.Eyes.Drowsy {
		t.Fatalf("expected drowsy, accumulated %v", snap.Eyes.Accumulated)
	}
	if snap.Message != MsgDrowsy {
		t.Errorf("Message = %q, want %q", snap.Message, MsgDrowsy)
	}
	if !snap.Siren {
		t.Error("siren should be playing")
	}
	if snap.DrowsyCount != 1 {
		t.Errorf("DrowsyCount = %d, want 1", snap.DrowsyCount)
	}
	if got := player.Calls(); !slices.Contains(got, "play:siren") {
		t.Errorf("player calls = %v", got)
	}
}

func TestPipeline_DrowsyRecoveryClearsMessage(t *testing.T) {
	p := New(testConfig())
	_, at := run(t, p, t0, 50, 0.05)

	// Open eyes decay the accumulator at half rate.
	snap, _ := run(t, p, at, 10, 0.32)
	if snap.Eyes.Drowsy {
		t.Fatal("expected drowsy to clear")
	}
	if snap.Message != "" {
		t.Errorf("Message = %q, want empty", snap.Message)
	}
}

func TestPipeline_NoFace(t *testing.T) {
	p := New(testConfig())
	_, at := run(t, p, t0, 20, 0.05)
	before := p.Snapshot().Eyes.Accumulated

	snap := p.Process(t.Context(), face.Frame{Timestamp: at})
	if snap.Target != -1 || snap.Faces != 0 {
		t.Errorf("Target = %d Faces = %d", snap.Target, snap.Faces)
	}
	if snap.Eyes.Accumulated >= before {
		t.Errorf("accumulator %v should decay from %v", snap.Eyes.Accumulated, before)
	}
}

func TestPipeline_UnmeasurableEyesNeverDrowsy(t *testing.T) {
	player := &effects.MockPlayer{}
	st := store.NewMemory()
	p := New(testConfig(), WithPlayer(player), WithStore(st))

	short := make(face.Face, 10)
	for i := range short {
		short[i] = face.Point{X: 0.4 + 0.02*float64(i), Y: 0.5}
	}

	var snap Snapshot
	at := t0
	for at.Before(t0.Add(3 * time.Second)) {
		snap = p.Process(t.Context(), face.Frame{Faces: []face.Face{short}, Timestamp: at})
		at = at.Add(frameInterval)
	}

	if snap.Target != 0 {
		t.Fatalf("Target = %d, want 0", snap.Target)
	}
	if snap.Eyes.Closed || snap.Eyes.Drowsy || snap.Eyes.Accumulated != 0 {
		t.Errorf("eyes = %+v, want open with nothing accumulated", snap.Eyes)
	}
	if snap.Overlay.Visible || snap.Siren || snap.Message != "" {
		t.Errorf("overlay visible=%v siren=%v message=%q", snap.Overlay.Visible, snap.Siren, snap.Message)
	}
	if n, _ := st.DrowsyCount(t.Context()); n != 0 {
		t.Errorf("stored DrowsyCount = %d, want 0", n)
	}
	if calls := player.Calls(); len(calls) != 0 {
		t.Errorf("player calls = %v", calls)
	}
}

func TestPipeline_CounterPersists(t *testing.T) {
	st := store.NewMemory()
	p := New(testConfig(), WithStore(st))
	run(t, p, t0, 10, 0.05)

	if got := p.DrowsyCount(); got != 1 {
		t.Fatalf("DrowsyCount = %d, want 1", got)
	}
	n, err := st.DrowsyCount(t.Context())
	if err != nil || n != 1 {
		t.Fatalf("stored count = %d, %v", n, err)
	}

	reopened := New(testConfig(), WithStore(st))
	if got := reopened.DrowsyCount(); got != 1 {
		t.Errorf("restored DrowsyCount = %d, want 1", got)
	}

	if err := reopened.ResetDrowsyCount(t.Context()); err != nil {
		t.Fatal(err)
	}
	if n, _ := st.DrowsyCount(t.Context()); n != 0 {
		t.Errorf("stored count after reset = %d", n)
	}
}

func TestPipeline_EyeClassifier(t *testing.T) {
	tests := []struct {
		name       string
		probs      [2]float64
		err        error
		eyeOpen    float64
		wantClosed bool
		wantUsed   bool
	}{
		{"classifier closed", [2]float64{0.9, 0.9}, nil, 0.32, true, true},
		{"classifier open", [2]float64{0.1, 0.1}, nil, 0.05, false, true},
		{"failure falls back to EAR", [2]float64{}, errors.New("boom"), 0.05, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Eyes.UseClassifier = true
			eye := &classify.MockEyeClassifier{
				ClosedFunc: func(ctx context.Context, image []byte, left, right face.Box) ([2]float64, error) {
					return tt.probs, tt.err
				},
			}
			p := New(cfg, WithClassifiers(eye, nil))

			f := frame(t0, tt.eyeOpen)
			f.Image = []byte{0xff, 0xd8}
			snap := p.Process(t.Context(), f)
			if snap.Eyes.Closed != tt.wantClosed {
				t.Errorf("Closed = %v, want %v", snap.Eyes.Closed, tt.wantClosed)
			}
			if snap.Eyes.UsedClassifier != tt.wantUsed {
				t.Errorf("UsedClassifier = %v, want %v", snap.Eyes.UsedClassifier, tt.wantUsed)
			}
		})
	}
}

func TestPipeline_ClassifierSkippedWithoutImage(t *testing.T) {
	cfg := testConfig()
	cfg.Eyes.UseClassifier = true
	called := false
	eye := &classify.MockEyeClassifier{
		ClosedFunc: func(ctx context.Context, image []byte, left, right face.Box) ([2]float64, error) {
			called = true
			return [2]float64{1, 1}, nil
		},
	}
	p := New(cfg, WithClassifiers(eye, nil))
	p.Process(t.Context(), frame(t0, 0.32))
	if called {
		t.Error("classifier should not run without an image")
	}
}

func TestPipeline_Escalation(t *testing.T) {
	cfg := testConfig()
	cfg.Escalation.AlertThreshold = 2
	clock := &fakeClock{now: time.Unix(5000, 0)}
	rec := &notify.Recorder{}
	player := &effects.MockPlayer{}
	p := New(cfg, WithNotifier(rec), WithPlayer(player), WithWallClock(clock.Now))
	p.SetOverride(escalation.OverrideMoving)

	// Closure over 2s scores 2.
	var snap Snapshot
	at := t0
	alerted := 0
	for range 90 {
		snap = p.Process(t.Context(), frame(at, 0.05))
		at = at.Add(frameInterval)
		if snap.Escalation.Alerted {
			alerted++
		}
	}
	if alerted != 1 {
		t.Fatalf("alerted %d times, want 1", alerted)
	}
	if snap.Escalation.State != escalation.StateAlertActive {
		t.Fatalf("State = %v, want alert", snap.Escalation.State)
	}
	if snap.Message != escalation.MsgAlert || !snap.AlertTone {
		t.Errorf("Message = %q AlertTone = %v", snap.Message, snap.AlertTone)
	}

	p.SetOverride(escalation.OverrideStopped)
	snap = p.Process(t.Context(), frame(at, 0.32))
	if !snap.Escalation.Started || snap.Escalation.State != escalation.StateMicrogame {
		t.Fatalf("expected microgame start, got %+v", snap.Escalation)
	}
	if snap.Message != "" || snap.AlertTone {
		t.Errorf("Message = %q AlertTone = %v after start", snap.Message, snap.AlertTone)
	}

	if !p.MicrogameHit() {
		t.Error("first target should be hittable")
	}
	if p.MicrogameHit() {
		t.Error("a target counts once")
	}

	clock.now = clock.now.Add(11 * time.Second)
	snap = p.Advance()
	out := snap.Escalation.Outcome
	if out == nil {
		t.Fatal("expected an outcome after the game duration")
	}
	if out.Passed || out.Hits != 1 {
		t.Errorf("Outcome = %+v", out)
	}
	if snap.Score != 0 {
		t.Errorf("Score on ending tick = %d, want 0", snap.Score)
	}
	if snap.Message != escalation.MsgFailed {
		t.Errorf("Message = %q", snap.Message)
	}
	if got := rec.Records(); len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if snap.Escalation.State != escalation.StateIdle {
		t.Errorf("State = %v, want idle", snap.Escalation.State)
	}
}

func TestPipeline_NoAlertWhileStopped(t *testing.T) {
	cfg := testConfig()
	cfg.Escalation.AlertThreshold = 2
	p := New(cfg)
	p.SetOverride(escalation.OverrideStopped)

	snap, _ := run(t, p, t0, 90, 0.05)
	if snap.Escalation.State != escalation.StateIdle {
		t.Errorf("State = %v, want idle while stopped", snap.Escalation.State)
	}
	if snap.Score < 2 {
		t.Errorf("Score = %d, want at least 2", snap.Score)
	}
}

func TestPipeline_Stop(t *testing.T) {
	player := &effects.MockPlayer{}
	p := New(testConfig(), WithPlayer(player))
	_, at := run(t, p, t0, 50, 0.05)
	if !p.Snapshot().Siren {
		t.Fatal("siren should be playing before Stop")
	}

	p.Stop()
	if !slices.Contains(player.Calls(), "stop:siren") {
		t.Errorf("Stop did not silence the siren: %v", player.Calls())
	}
	snap := p.Snapshot()
	if snap.Running || snap.Siren || snap.Message != "" {
		t.Errorf("after Stop: %+v", snap)
	}

	// Frames are ignored while stopped.
	seq := snap.Seq
	if got := p.Process(t.Context(), frame(at, 0.05)); got.Seq != seq {
		t.Errorf("Seq advanced to %d while stopped", got.Seq)
	}

	p.Start()
	snap = p.Process(t.Context(), frame(at.Add(time.Second), 0.05))
	if snap.Eyes.Accumulated != 0 {
		t.Errorf("first frame after Start accumulated %v, want 0", snap.Eyes.Accumulated)
	}
}

func TestPipeline_StartCalibration(t *testing.T) {
	p := New(testConfig())
	p.StartCalibration()
	if got := p.Process(t.Context(), frame(t0, 0.32)).Message; got != MsgCalibrating {
		t.Errorf("Message = %q", got)
	}

	p.Stop()
	p.StartCalibration()
	if got := p.Snapshot().Message; got != MsgStartCalibFirst {
		t.Errorf("stopped Message = %q", got)
	}
	p.Start()
	snap := p.Process(t.Context(), frame(t0.Add(time.Second), 0.32))
	if snap.Gaze.Calibrating {
		t.Error("calibration should not start while stopped")
	}
}

func TestPipeline_ApplyTuning(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   []string
		check  func(Config) bool
	}{
		{
			name:   "valid float",
			values: map[string]string{"ear_threshold": "0.3"},
			want:   []string{"ear_threshold"},
			check:  func(c Config) bool { return floatEquals(c.Eyes.Threshold, 0.3) },
		},
		{
			name:   "invalid float leaves setting",
			values: map[string]string{"ear_threshold": "abc"},
			check:  func(c Config) bool { return floatEquals(c.Eyes.Threshold, DefaultConfig().Eyes.Threshold) },
		},
		{
			name:   "duration in seconds",
			values: map[string]string{"closed_duration": "2"},
			want:   []string{"closed_duration"},
			check:  func(c Config) bool { return c.Eyes.ClosedDuration == 2*time.Second },
		},
		{
			name:   "bool toggle",
			values: map[string]string{"gaze_enabled": "off"},
			want:   []string{"gaze_enabled"},
			check:  func(c Config) bool { return !c.Gaze.Enabled },
		},
		{
			name: "smoothing windows",
			values: map[string]string{
				"eye_smooth_window":   "3",
				"gaze_smooth_window":  "8",
				"mouth_smooth_window": "4",
			},
			want: []string{"eye_smooth_window", "gaze_smooth_window", "mouth_smooth_window"},
			check: func(c Config) bool {
				return c.Eyes.SmoothWindow == 3 && c.Gaze.SmoothWindow == 8 && c.Yawn.SmoothWindow == 4
			},
		},
		{
			name:   "window must be a positive integer",
			values: map[string]string{"gaze_smooth_window": "2.5", "eye_smooth_window": "0"},
			check: func(c Config) bool {
				d := DefaultConfig()
				return c.Gaze.SmoothWindow == d.Gaze.SmoothWindow && c.Eyes.SmoothWindow == d.Eyes.SmoothWindow
			},
		},
		{
			name:   "unknown key ignored",
			values: map[string]string{"nope": "1"},
			check:  func(c Config) bool { return true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(testConfig())
			got := p.ApplyTuning(tt.values)
			if !slices.Equal(got, tt.want) {
				t.Errorf("applied = %v, want %v", got, tt.want)
			}
			if !tt.check(p.Config()) {
				t.Errorf("config not as expected: %+v", p.Config())
			}
		})
	}
}

func TestPipeline_AutoAdaptRestoresBaseline(t *testing.T) {
	cfg := testConfig()
	hours := 3.0
	cfg.Sleep.LastSleepHours = &hours
	p := New(cfg)
	base := p.Config().Eyes.ClosedDuration

	p.ApplyTuning(map[string]string{"auto_adapt": "on"})
	run(t, p, t0, 5, 0.32)
	if got := p.Config().Eyes.ClosedDuration; got >= base {
		t.Fatalf("adapted ClosedDuration = %v, want below %v", got, base)
	}

	p.ApplyTuning(map[string]string{"auto_adapt": "off"})
	if got := p.Config().Eyes.ClosedDuration; got != base {
		t.Errorf("ClosedDuration after disable = %v, want %v", got, base)
	}
}

func TestPipeline_ImportSleep(t *testing.T) {
	st := store.NewMemory()
	p := New(testConfig(), WithStore(st))

	prof, err := p.ImportSleep([]byte(`{"lastSleepHours": 5.5, "idealHours": 8}`))
	if err != nil {
		t.Fatal(err)
	}
	if prof.LastSleepHours == nil || !floatEquals(*prof.LastSleepHours, 5.5) || !floatEquals(prof.IdealHours, 8) {
		t.Errorf("profile = %+v", prof)
	}
	if saved, ok, _ := st.LoadSleep(t.Context()); !ok || !floatEquals(saved.IdealHours, 8) {
		t.Errorf("stored profile = %+v, %v", saved, ok)
	}

	if _, err := p.ImportSleep([]byte(`{not json`)); !errors.Is(err, sleep.ErrInvalidImport) {
		t.Errorf("err = %v, want ErrInvalidImport", err)
	}
	if got := p.Config().Sleep.IdealHours; !floatEquals(got, 8) {
		t.Errorf("failed import changed IdealHours to %v", got)
	}
	snap := p.Process(t.Context(), frame(t0, 0.32))
	if snap.Message != sleep.MsgImportFailed {
		t.Errorf("Message = %q", snap.Message)
	}
}

func TestPipeline_Observer(t *testing.T) {
	var seqs []uint64
	p := New(testConfig(), WithObserver(func(s Snapshot) { seqs = append(seqs, s.Seq) }))
	run(t, p, t0, 3, 0.32)
	if !slices.Equal(seqs, []uint64{1, 2, 3}) {
		t.Errorf("observed %v", seqs)
	}
}

func TestPipeline_SetTarget(t *testing.T) {
	p := New(testConfig())
	left := face.NeutralPose()
	left.CX = 0.2
	centre := face.NeutralPose()
	f := face.Frame{Faces: []face.Face{face.Synthesize(left), face.Synthesize(centre)}, Timestamp: t0}

	if got := p.Process(t.Context(), f).Target; got != 1 {
		t.Errorf("auto Target = %d, want 1", got)
	}
	p.SetTarget(0)
	f.Timestamp = t0.Add(frameInterval)
	if got := p.Process(t.Context(), f).Target; got != 0 {
		t.Errorf("pinned Target = %d, want 0", got)
	}
}
