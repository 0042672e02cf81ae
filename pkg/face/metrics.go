package face

import "math"

const degenerate = 1e-6

// EyeAspectRatio returns the vertical lid distance divided by the corner
// distance. Smaller when the eye is closed. ok is false when the landmarks
// are missing or the eye is degenerate.
func EyeAspectRatio(f Face, eye EyeIndices) (ratio float64, ok bool) {
	if !f.has(eye.Upper[0], eye.Upper[1], eye.Lower[0], eye.Lower[1], eye.Left, eye.Right) {
		return 0, false
	}
	upper := midpoint(f[eye.Upper[0]], f[eye.Upper[1]])
	lower := midpoint(f[eye.Lower[0]], f[eye.Lower[1]])
	horiz := Dist(f[eye.Left], f[eye.Right])
	if horiz <= degenerate {
		return 0, false
	}
	return Dist(upper, lower) / horiz, true
}

// MeanEyeAspectRatio averages both eyes. ok is false unless both eyes
// could be measured.
func MeanEyeAspectRatio(f Face) (left, right, mean float64, ok bool) {
	left, lok := EyeAspectRatio(f, LeftEye)
	right, rok := EyeAspectRatio(f, RightEye)
	if !lok || !rok {
		return left, right, 0, false
	}
	return left, right, (left + right) / 2, true
}

// MouthOpenRatio returns lip distance divided by mouth width. Larger when the
// mouth opens; 0 when landmarks are missing or degenerate.
func MouthOpenRatio(f Face) float64 {
	if !f.has(UpperLip, LowerLip, MouthLeft, MouthRight) {
		return 0
	}
	width := Dist(f[MouthLeft], f[MouthRight])
	if width <= degenerate {
		return 0
	}
	return Dist(f[UpperLip], f[LowerLip]) / width
}

// Roll returns the head roll in radians from the cheek-to-cheek vector.
// Positive means the right cheek sits lower in the image.
func Roll(f Face) (float64, bool) {
	if !f.has(LeftCheek, RightCheek) {
		return 0, false
	}
	l, r := f[LeftCheek], f[RightCheek]
	return math.Atan2(r.Y-l.Y, r.X-l.X), true
}

// Gaze is a normalized gaze direction; (0,0) looks straight ahead and each
// axis spans [-1, 1].
type Gaze struct {
	X, Y float64
	Iris Point
}

// IrisCenter averages the available iris ring points. At least three are required.
func IrisCenter(f Face, eye EyeIndices) (Point, bool) {
	var sx, sy float64
	n := 0
	for _, i := range eye.Iris {
		if p, ok := f.At(i); ok {
			sx += p.X
			sy += p.Y
			n++
		}
	}
	if n < 3 {
		return Point{}, false
	}
	return Point{X: sx / float64(n), Y: sy / float64(n)}, true
}

// GazeFor projects the iris centre onto the eye's local axes.
func GazeFor(f Face, eye EyeIndices) (Gaze, bool) {
	if !f.has(eye.Upper[0], eye.Upper[1], eye.Lower[0], eye.Lower[1], eye.Left, eye.Right) {
		return Gaze{}, false
	}
	iris, ok := IrisCenter(f, eye)
	if !ok {
		return Gaze{}, false
	}

	left, right := f[eye.Left], f[eye.Right]
	upper := midpoint(f[eye.Upper[0]], f[eye.Upper[1]])
	lower := midpoint(f[eye.Lower[0]], f[eye.Lower[1]])

	vx, vy := right.X-left.X, right.Y-left.Y
	wx := math.Hypot(vx, vy)
	if wx <= degenerate {
		return Gaze{}, false
	}
	ux, uy := vx/wx, vy/wx

	// Vertical axis from the lid centres; fall back to the corner normal.
	hx, hy := lower.X-upper.X, lower.Y-upper.Y
	h := math.Hypot(hx, hy)
	var nx, ny float64
	if h > degenerate {
		nx, ny = hx/h, hy/h
	} else {
		nx, ny = -uy, ux
	}
	halfH := math.Max(degenerate, h*0.5)
	mid := midpoint(upper, lower)

	projX := (iris.X-left.X)*ux + (iris.Y-left.Y)*uy
	projY := (iris.X-mid.X)*nx + (iris.Y-mid.Y)*ny

	return Gaze{
		X:    clamp(projX/wx*2-1, -1, 1),
		Y:    clamp(projY/halfH, -1, 1),
		Iris: iris,
	}, true
}

// MeanGaze averages both eyes. It fails if either eye has no usable iris.
func MeanGaze(f Face) (Gaze, bool) {
	l, okL := GazeFor(f, LeftEye)
	r, okR := GazeFor(f, RightEye)
	if !okL || !okR {
		return Gaze{}, false
	}
	return Gaze{X: (l.X + r.X) * 0.5, Y: (l.Y + r.Y) * 0.5}, true
}
