package face

import (
	"image"
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestEyeAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		open float64
		roll float64
	}{
		{"open", 0.32, 0},
		{"closed", 0.05, 0},
		{"rolled", 0.28, 0.4},
		{"shut", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NeutralPose()
			p.EyeOpen = tt.open
			p.Roll = tt.roll
			f := Synthesize(p)

			l, r, mean, ok := MeanEyeAspectRatio(f)
			if !ok {
				t.Fatal("synthetic face should be measurable")
			}
			if !floatEquals(l, tt.open) || !floatEquals(r, tt.open) || !floatEquals(mean, tt.open) {
				t.Errorf("EAR = (%v, %v, %v), want %v", l, r, mean, tt.open)
			}
		})
	}
}

func TestEyeAspectRatio_Unmeasurable(t *testing.T) {
	tests := []struct {
		name string
		face Face
	}{
		{"empty", Face{}},
		{"short tracker", make(Face, 68)},
		{"all points coincide", make(Face, NumIrisMesh)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := EyeAspectRatio(tt.face, LeftEye); ok || got != 0 {
				t.Errorf("EyeAspectRatio = (%v, %v), want (0, false)", got, ok)
			}
			if _, _, _, ok := MeanEyeAspectRatio(tt.face); ok {
				t.Error("MeanEyeAspectRatio should not be ok")
			}
		})
	}
}

func TestMouthOpenRatio(t *testing.T) {
	for _, want := range []float64{0, 0.1, 0.65, 1.2} {
		p := NeutralPose()
		p.MouthOpen = want
		p.Roll = -0.3
		if got := MouthOpenRatio(Synthesize(p)); !floatEquals(got, want) {
			t.Errorf("MOR = %v, want %v", got, want)
		}
	}

	if got := MouthOpenRatio(Face{{X: 1}}); got != 0 {
		t.Errorf("short face MOR = %v, want 0", got)
	}
}

func TestRoll(t *testing.T) {
	for _, want := range []float64{0, 0.25, -0.25, 1.0} {
		p := NeutralPose()
		p.Roll = want
		got, ok := Roll(Synthesize(p))
		if !ok || !floatEquals(got, want) {
			t.Errorf("Roll = %v (ok=%v), want %v", got, ok, want)
		}
	}

	if _, ok := Roll(Face{}); ok {
		t.Error("Roll on empty face should be unavailable")
	}
}

func TestGaze(t *testing.T) {
	tests := []struct {
		name   string
		gx, gy float64
	}{
		{"centre", 0, 0},
		{"left", -0.6, 0},
		{"right", 0.5, 0},
		{"down", 0, 0.5},
		{"diagonal", 0.3, -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NeutralPose()
			p.GazeX, p.GazeY = tt.gx, tt.gy
			p.Roll = 0.1
			g, ok := MeanGaze(Synthesize(p))
			if !ok {
				t.Fatal("gaze unavailable")
			}
			if math.Abs(g.X-tt.gx) > 1e-6 || math.Abs(g.Y-tt.gy) > 1e-6 {
				t.Errorf("gaze = (%v, %v), want (%v, %v)", g.X, g.Y, tt.gx, tt.gy)
			}
		})
	}
}

func TestGaze_Clamped(t *testing.T) {
	p := NeutralPose()
	p.GazeX = 3
	g, ok := GazeFor(Synthesize(p), LeftEye)
	if !ok {
		t.Fatal("gaze unavailable")
	}
	if g.X != 1 {
		t.Errorf("gaze X = %v, want clamped to 1", g.X)
	}
}

func TestGaze_NoIris(t *testing.T) {
	p := NeutralPose()
	p.NoIris = true
	if _, ok := MeanGaze(Synthesize(p)); ok {
		t.Error("gaze should be unavailable without iris landmarks")
	}

	// One eye missing iris points makes the frame unavailable.
	f := Synthesize(NeutralPose())
	f = f[:RightEye.Iris[0]+2]
	if _, ok := MeanGaze(f); ok {
		t.Error("gaze should be unavailable when one iris has < 3 points")
	}
}

func TestEyeBox(t *testing.T) {
	p := NeutralPose()
	f := Synthesize(p)
	b, ok := EyeBox(f, LeftEye)
	if !ok {
		t.Fatal("eye box unavailable")
	}
	w := 0.2 * p.Scale
	if !floatEquals(b.W, w*EyePad) {
		t.Errorf("W = %v, want %v", b.W, w*EyePad)
	}
	if !floatEquals(b.H, p.EyeOpen*w*EyeHeightGain*EyePad) {
		t.Errorf("H = %v", b.H)
	}
	if !floatEquals(b.CX, p.CX+0.2*p.Scale) {
		t.Errorf("CX = %v", b.CX)
	}
}

func TestMouthBox(t *testing.T) {
	p := NeutralPose()
	p.MouthOpen = 0.5
	b, ok := MouthBox(Synthesize(p))
	if !ok {
		t.Fatal("mouth box unavailable")
	}
	mw := 0.3 * p.Scale
	if !floatEquals(b.W, mw*MouthWidthPad) {
		t.Errorf("W = %v, want %v", b.W, mw*MouthWidthPad)
	}
	if !floatEquals(b.H, 0.5*mw*MouthHeightPad) {
		t.Errorf("H = %v", b.H)
	}
}

func TestSelectTarget(t *testing.T) {
	near := NeutralPose()
	near.CX, near.CY = 0.52, 0.48
	far := NeutralPose()
	far.CX, far.CY = 0.15, 0.2

	faces := []Face{Synthesize(far), Synthesize(near)}

	tests := []struct {
		name   string
		faces  []Face
		pinned int
		want   int
	}{
		{"none", nil, -1, -1},
		{"closest to centre", faces, -1, 1},
		{"pinned", faces, 0, 0},
		{"pinned out of range", faces, 5, 1},
		{"single", faces[:1], -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectTarget(tt.faces, tt.pinned); got != tt.want {
				t.Errorf("SelectTarget = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBox_Pixels(t *testing.T) {
	tests := []struct {
		name       string
		box        Box
		cols, rows int
		want       image.Rectangle
	}{
		{"centred", Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.1}, 640, 480, image.Rect(256, 216, 384, 264)},
		{"minimum size", Box{}, 640, 480, image.Rect(0, 0, 4, 4)},
		{"clipped at edge", Box{CX: 1, CY: 1, W: 0.5, H: 0.5}, 100, 100, image.Rect(75, 75, 100, 100)},
		{"empty image", Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}, 0, 0, image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Pixels(tt.cols, tt.rows); got != tt.want {
				t.Errorf("Pixels = %v, want %v", got, tt.want)
			}
		})
	}
}
