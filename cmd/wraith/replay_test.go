package main

import (
	"testing"
	"time"

	"github.com/teslashibe/go-wraith/pkg/face"
)

func TestScenario_PoseAt(t *testing.T) {
	sc := scenario{alert: 5 * time.Second, drowsy: 10 * time.Second}

	tests := []struct {
		name     string
		at       time.Duration
		ok       bool
		eyesShut bool
		yawning  bool
		wantTilt bool
	}{
		{"blink at start", 0, true, true, false, false},
		{"alert", time.Second, true, false, false, false},
		{"drowsy yawn", 5500 * time.Millisecond, true, true, true, false},
		{"drowsy tilted", 8 * time.Second, true, true, false, true},
		{"over", 15 * time.Second, false, false, false, false},
		{"negative", -time.Second, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := sc.poseAt(tt.at)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			f := face.Synthesize(p)
			_, _, ear, _ := face.MeanEyeAspectRatio(f)
			if shut := ear < 0.15; shut != tt.eyesShut {
				t.Errorf("EAR = %v, eyes shut %v, want %v", ear, shut, tt.eyesShut)
			}
			if yawn := face.MouthOpenRatio(f) > 0.6; yawn != tt.yawning {
				t.Errorf("MOR = %v, yawning %v, want %v", face.MouthOpenRatio(f), yawn, tt.yawning)
			}
			roll, _ := face.Roll(f)
			if tilted := roll > 0.25; tilted != tt.wantTilt {
				t.Errorf("roll = %v, tilted %v, want %v", roll, tilted, tt.wantTilt)
			}
		})
	}
}
