// Package face turns tracked face landmarks into the per-frame measurements the
// detectors consume: eye and mouth openness, head roll, and gaze direction.
//
// Landmarks follow the MediaPipe FaceMesh topology (468 points, 478 with iris
// refinement) in normalized image coordinates.
package face

import (
	"math"
	"time"
)

// FaceMesh landmark indices.
const (
	LeftCheek  = 234
	RightCheek = 454
	Chin       = 152
	Forehead   = 10

	UpperLip    = 13
	LowerLip    = 14
	MouthLeft   = 61
	MouthRight  = 291
	NumIrisMesh = 478
)

// EyeIndices names the landmarks used to measure one eye.
type EyeIndices struct {
	Upper [2]int // Points near the upper lid centre
	Lower [2]int // Points near the lower lid centre
	Left  int    // Corner
	Right int    // Corner
	Iris  [5]int // Iris ring (only with refined landmarks)
}

var (
	// LeftEye is the subject's left eye.
	LeftEye = EyeIndices{
		Upper: [2]int{386, 385},
		Lower: [2]int{374, 380},
		Left:  263,
		Right: 362,
		Iris:  [5]int{468, 469, 470, 471, 472},
	}

	// RightEye is the subject's right eye.
	RightEye = EyeIndices{
		Upper: [2]int{159, 158},
		Lower: [2]int{145, 153},
		Left:  133,
		Right: 33,
		Iris:  [5]int{473, 474, 475, 476, 477},
	}
)

// Point is a normalized landmark. Z is optional depth.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z,omitempty" msgpack:"z,omitempty"`
}

// Face is one tracked face's landmark set, index-addressable.
type Face []Point

// Frame is one tracker output: zero or more faces at a capture timestamp.
// Image optionally carries the encoded frame (JPEG) for classifier crops.
type Frame struct {
	Faces     []Face
	Image     []byte
	Timestamp time.Time
}

// At returns the landmark at index i and whether it exists.
func (f Face) At(i int) (Point, bool) {
	if i < 0 || i >= len(f) {
		return Point{}, false
	}
	return f[i], true
}

func (f Face) has(idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= len(f) {
			return false
		}
	}
	return true
}

// Dist returns the 2-D distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
