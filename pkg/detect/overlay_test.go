package detect

import (
	"testing"
	"time"
)

func TestOverlay_RatioModeHideDelay(t *testing.T) {
	o := NewOverlay(DefaultOverlayConfig())

	s := o.Update(true, 0, false, t0)
	if s.Target != 1 {
		t.Fatalf("target = %v, want 1 while closed", s.Target)
	}

	tests := []struct {
		at   time.Duration
		want float64
	}{
		{ms(500), 1},
		{ms(1000), 1},
		{ms(1001), 0},
	}
	for _, tt := range tests {
		if got := o.Update(false, 0, false, t0.Add(tt.at)).Target; got != tt.want {
			t.Errorf("target at +%v = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestOverlay_ClassifierShowDelay(t *testing.T) {
	o := NewOverlay(DefaultOverlayConfig())

	// A blink never shows the overlay in classifier mode.
	if s := o.Update(true, ms(300), true, t0); s.Target != 0 {
		t.Errorf("blink target = %v, want 0", s.Target)
	}
	if s := o.Update(false, ms(300), true, t0.Add(ms(100))); s.Target != 0 {
		t.Errorf("after blink target = %v, want 0", s.Target)
	}

	// 1.996s rounds to 2.00s and shows.
	if s := o.Update(true, ms(1996), true, t0.Add(ms(2000))); s.Target != 1 {
		t.Errorf("target = %v, want 1 at rounded show delay", s.Target)
	}
	if s := o.Update(false, ms(1990), true, t0.Add(ms(2900))); s.Target != 1 {
		t.Errorf("target = %v, want 1 within hide delay", s.Target)
	}
	if s := o.Update(false, ms(1900), true, t0.Add(ms(3100))); s.Target != 0 {
		t.Errorf("target = %v, want 0 after hide delay", s.Target)
	}
}

func TestOverlay_FadeAndRisingEdge(t *testing.T) {
	o := NewOverlay(DefaultOverlayConfig())

	rising := 0
	var s OverlayState
	for i := 0; i < 30; i++ {
		s = o.Update(true, 0, false, t0.Add(ms(33*i)))
		if s.Rising {
			rising++
			// 1-(0.88)^n >= 0.18 first at n=2.
			if i != 1 {
				t.Errorf("became visible on frame %d, want 1", i)
			}
		}
	}
	if rising != 1 {
		t.Errorf("rising edges = %d, want 1", rising)
	}
	if s.Alpha <= 0.9 || s.Alpha > 1 {
		t.Errorf("alpha = %v after 30 frames", s.Alpha)
	}

	for i := 0; i < 40; i++ {
		s = o.NoFace()
	}
	if s.Visible {
		t.Error("overlay should fade out without a face")
	}

	s = o.Update(true, 0, false, t0.Add(time.Minute))
	s = o.Update(true, 0, false, t0.Add(time.Minute+ms(33)))
	if !s.Rising {
		t.Error("second appearance should be a new rising edge")
	}
}
