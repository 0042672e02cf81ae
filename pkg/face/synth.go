package face

import "math"

// Pose describes a synthetic face for replay streams and tests.
type Pose struct {
	CX, CY    float64 // Face centre, normalized
	Scale     float64 // Cheek-to-cheek width, normalized
	EyeOpen   float64 // Target eye aspect ratio
	MouthOpen float64 // Target mouth open ratio
	Roll      float64 // Radians
	GazeX     float64 // [-1, 1]
	GazeY     float64 // [-1, 1]
	NoIris    bool    // Emit only the 468 base landmarks
}

// NeutralPose is an alert, centred, forward-looking face.
func NeutralPose() Pose {
	return Pose{CX: 0.5, CY: 0.5, Scale: 0.3, EyeOpen: 0.32, MouthOpen: 0.05}
}

// Synthesize builds a landmark set whose measured metrics match the pose.
// Unused landmarks collapse onto the face centre.
func Synthesize(p Pose) Face {
	n := NumIrisMesh
	if p.NoIris {
		n = 468
	}
	s := p.Scale
	if s <= 0 {
		s = 0.3
	}
	local := make([]Point, n)

	local[LeftCheek] = Point{X: -0.5 * s}
	local[RightCheek] = Point{X: 0.5 * s}
	local[Forehead] = Point{Y: -0.45 * s}
	local[Chin] = Point{Y: 0.45 * s}

	placeEye(local, LeftEye, 0.2*s, -0.1*s, 0.2*s, p)
	placeEye(local, RightEye, -0.2*s, -0.1*s, 0.2*s, p)

	mw := 0.3 * s
	my := 0.25 * s
	local[MouthLeft] = Point{X: -mw / 2, Y: my}
	local[MouthRight] = Point{X: mw / 2, Y: my}
	local[UpperLip] = Point{Y: my - p.MouthOpen*mw/2}
	local[LowerLip] = Point{Y: my + p.MouthOpen*mw/2}

	sin, cos := math.Sincos(p.Roll)
	f := make(Face, n)
	for i, q := range local {
		f[i] = Point{
			X: p.CX + q.X*cos - q.Y*sin,
			Y: p.CY + q.X*sin + q.Y*cos,
		}
	}
	return f
}

// placeEye lays out one eye centred at (cx, cy). Corners run along -x so
// both eyes share a gaze axis.
func placeEye(pts []Point, eye EyeIndices, cx, cy, w float64, p Pose) {
	h := p.EyeOpen * w
	pts[eye.Left] = Point{X: cx + w/2, Y: cy}
	pts[eye.Right] = Point{X: cx - w/2, Y: cy}
	pts[eye.Upper[0]] = Point{X: cx, Y: cy - h/2}
	pts[eye.Upper[1]] = Point{X: cx, Y: cy - h/2}
	pts[eye.Lower[0]] = Point{X: cx, Y: cy + h/2}
	pts[eye.Lower[1]] = Point{X: cx, Y: cy + h/2}

	if len(pts) <= eye.Iris[4] {
		return
	}
	ix := cx + w/2 - (p.GazeX+1)/2*w
	iy := cy + p.GazeY*h/2
	r := w * 0.05
	pts[eye.Iris[0]] = Point{X: ix, Y: iy}
	pts[eye.Iris[1]] = Point{X: ix + r, Y: iy}
	pts[eye.Iris[2]] = Point{X: ix - r, Y: iy}
	pts[eye.Iris[3]] = Point{X: ix, Y: iy + r}
	pts[eye.Iris[4]] = Point{X: ix, Y: iy - r}
}
