package escalation

import (
	"testing"
	"time"

	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/notify"
)

var t0 = time.Unix(1000, 0)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want int
	}{
		{"nothing", Signals{}, 0},
		{"accum exactly 1s", Signals{Accumulated: time.Second}, 0},
		{"accum over 1s", Signals{Accumulated: 1100 * time.Millisecond}, 1},
		{"accum exactly 2s", Signals{Accumulated: 2 * time.Second}, 1},
		{"accum over 2s", Signals{Accumulated: 2500 * time.Millisecond}, 2},
		{"gaze yawn tilt", Signals{GazeActive: true, YawnRecent: true, TiltRecent: true}, 3},
		{"prob ignored when invalid", Signals{Probability: 0.9}, 0},
		{"prob over 0.5", Signals{Probability: 0.6, ProbabilityValid: true}, 1},
		{"prob exactly 0.7", Signals{Probability: 0.7, ProbabilityValid: true}, 1},
		{"prob over 0.7", Signals{Probability: 0.71, ProbabilityValid: true}, 2},
		{"everything", Signals{
			Accumulated: 3 * time.Second, GazeActive: true, YawnRecent: true,
			TiltRecent: true, Probability: 0.9, ProbabilityValid: true,
		}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.in); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMotionGate(t *testing.T) {
	g := NewMotionGate(DefaultMotionConfig())

	for range 10 {
		g.Push(0.1)
	}
	if g.Moving() {
		t.Fatal("low magnitudes should read as stopped")
	}

	// Mean must strictly exceed the threshold.
	for range 10 {
		g.Push(0.5)
	}
	if g.Moving() {
		t.Error("mean equal to threshold should not be moving")
	}
	if !g.PushVector(3, 4, 0) {
		t.Error("magnitude 5 should tip the mean over the threshold")
	}

	g.SetOverride(OverrideStopped)
	if g.Moving() {
		t.Error("stopped override should win over the sensor")
	}
	if !g.Sensed() {
		t.Error("Sensed should ignore the override")
	}

	g.SetOverride(OverrideNone)
	g.Reset()
	if g.Moving() {
		t.Error("Reset should clear the sensed state")
	}
	g.SetOverride(OverrideMoving)
	if !g.Moving() {
		t.Error("moving override should force moving")
	}
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		in      string
		want    Override
		wantErr bool
	}{
		{"none", OverrideNone, false},
		{"", OverrideNone, false},
		{"Moving", OverrideMoving, false},
		{" stopped ", OverrideStopped, false},
		{"parked", OverrideNone, true},
	}
	for _, tt := range tests {
		got, err := ParseOverride(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOverride(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestMicrogame_Targets(t *testing.T) {
	g := NewMicrogame(DefaultMicrogameConfig())
	if g.Hit(t0) {
		t.Fatal("hit before start should not count")
	}
	g.Start(t0)

	tests := []struct {
		at   int
		want int
	}{
		{0, 0},
		{799, 0},
		{800, -1},
		{999, -1},
		{1000, 1},
		{9500, 9},
		{9800, -1},
		{10000, -1},
	}
	for _, tt := range tests {
		if got := g.Target(ms(tt.at)); got != tt.want {
			t.Errorf("Target(%dms) = %d, want %d", tt.at, got, tt.want)
		}
	}

	if !g.Hit(ms(100)) {
		t.Error("first hit on target 0 should count")
	}
	if g.Hit(ms(200)) {
		t.Error("second hit on the same target should not count")
	}
	if g.Hit(ms(900)) {
		t.Error("hit after the target hid should not count")
	}
	if g.Hits() != 1 {
		t.Errorf("Hits = %d, want 1", g.Hits())
	}
}

// alertThenStop drives a machine into the microgame at start.
func alertThenStop(t *testing.T, m *Machine, start time.Time) {
	t.Helper()
	if step := m.Update(4, true, start.Add(-time.Second)); !step.Alerted {
		t.Fatal("expected alert while moving with score 4")
	}
	if step := m.Update(4, false, start); !step.Started {
		t.Fatal("expected microgame to start when the vehicle stops")
	}
}

func TestMachine_MicrogamePassAndFail(t *testing.T) {
	tests := []struct {
		name    string
		hits    int
		passed  bool
		records int
	}{
		{"8 of 10 passes", 8, true, 0},
		{"7 of 10 fails", 7, false, 1},
		{"10 of 10 passes", 10, true, 0},
		{"none fails", 0, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &notify.Recorder{}
			m := NewMachine(DefaultConfig(), nil, rec)
			alertThenStop(t, m, t0)

			for i := range tt.hits {
				if !m.Hit(ms(i*1000 + 300)) {
					t.Fatalf("hit on target %d rejected", i)
				}
			}

			// Frames keep flowing while the game runs.
			for at := 0; at < 10000; at += 100 {
				if step := m.Update(5, true, ms(at)); step.Outcome != nil {
					t.Fatalf("game ended early at %dms", at)
				}
			}

			step := m.Update(5, true, ms(10000))
			if step.Outcome == nil {
				t.Fatal("expected outcome at 10s")
			}
			if step.Outcome.Passed != tt.passed || step.Outcome.Hits != tt.hits {
				t.Errorf("outcome = %+v", step.Outcome)
			}
			if step.Score != 0 {
				t.Errorf("score on the ending tick = %d, want 0", step.Score)
			}
			if step.State != StateIdle {
				t.Errorf("state = %v, want idle", step.State)
			}

			records := rec.Records()
			if len(records) != tt.records {
				t.Fatalf("records = %d, want %d", len(records), tt.records)
			}
			if tt.records == 1 {
				r := records[0]
				if r.Score != tt.hits || r.Threshold != 8 || r.DrowsinessScore != 5 || r.ID == "" {
					t.Errorf("record = %+v", r)
				}
				if step.Outcome.Record == nil || step.Outcome.Record.ID != r.ID {
					t.Error("outcome should carry the notified record")
				}
			}

			// More ticks never notify again.
			m.Update(0, false, ms(10100))
			if len(rec.Records()) != tt.records {
				t.Error("notification repeated")
			}
		})
	}
}

func TestMachine_AlertEnteredOnce(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil, &notify.Recorder{})

	alerts := 0
	for at := 0; at <= 2000; at += 33 {
		if m.Update(4, true, ms(at)).Alerted {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("alerts = %d, want 1", alerts)
	}
	if m.State() != StateAlertActive {
		t.Errorf("state = %v, want alert", m.State())
	}
}

func TestMachine_BelowThresholdStaysIdle(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil, nil)
	if step := m.Update(2, true, t0); step.Alerted || step.State != StateIdle {
		t.Errorf("score 2 should not alert: %+v", step)
	}
	if step := m.Update(9, false, t0); step.Alerted {
		t.Error("stopped vehicle should not alert")
	}
}

func TestMachine_MotionIgnoredDuringGame(t *testing.T) {
	m := NewMachine(DefaultConfig(), nil, &notify.Recorder{})
	alertThenStop(t, m, t0)

	for at := 0; at < 10000; at += 250 {
		moving := (at/1000)%2 == 0
		step := m.Update(6, moving, ms(at))
		if step.State != StateMicrogame || step.Alerted {
			t.Fatalf("at %dms state = %v", at, step.State)
		}
	}
}

func TestMachine_ToneLifecycle(t *testing.T) {
	player := &effects.MockPlayer{}
	m := NewMachine(DefaultConfig(), player, nil)

	m.Update(3, true, t0)
	if !m.ToneActive() {
		t.Fatal("tone should play while alerting")
	}
	m.Update(3, true, ms(31000))
	if m.State() != StateAlertActive || !m.ToneActive() {
		t.Fatal("tone should keep playing past the siren cap while still moving")
	}
	m.Update(3, false, ms(31500))
	if m.ToneActive() {
		t.Error("tone should stop when the microgame starts")
	}
	calls := player.Calls()
	if len(calls) != 2 || calls[0] != "play:alert" || calls[1] != "stop:alert" {
		t.Errorf("calls = %v", calls)
	}
}

func TestMachine_Reset(t *testing.T) {
	rec := &notify.Recorder{}
	m := NewMachine(DefaultConfig(), nil, rec)
	alertThenStop(t, m, t0)

	m.Reset()
	if m.State() != StateIdle || m.ToneActive() {
		t.Error("Reset should return to idle and silence the tone")
	}
	if m.Hit(ms(100)) {
		t.Error("hits after reset should be rejected")
	}
	m.Update(0, false, ms(20000))
	if len(rec.Records()) != 0 {
		t.Error("abandoned game must not notify")
	}
}
