package face

import (
	"image"
	"math"
)

// Box is a normalized, centre-anchored rectangle.
type Box struct {
	CX, CY float64
	W, H   float64
}

// Eye and mouth crop padding.
const (
	EyePad         = 1.6
	EyeHeightGain  = 2.2 // Crop is taller than the lid gap
	MouthWidthPad  = 1.6
	MouthHeightPad = 2.2
)

// MinCropPixels is the smallest crop edge in pixels.
const MinCropPixels = 4

// Pixels maps the box onto a cols x rows image. The origin is clamped
// inside the image, each edge is at least MinCropPixels, and the result
// never extends past the image.
func (b Box) Pixels(cols, rows int) image.Rectangle {
	if cols <= 0 || rows <= 0 {
		return image.Rectangle{}
	}
	cw, ch := float64(cols), float64(rows)
	x := clamp((b.CX-b.W/2)*cw, 0, cw-1)
	y := clamp((b.CY-b.H/2)*ch, 0, ch-1)
	w := clamp(b.W*cw, MinCropPixels, cw)
	h := clamp(b.H*ch, MinCropPixels, ch)
	r := image.Rect(int(x), int(y), int(x+w), int(y+h))
	return r.Intersect(image.Rect(0, 0, cols, rows))
}

// Bounds returns the tight bounding box of all landmarks.
func Bounds(f Face) Box {
	if len(f) == 0 {
		return Box{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range f {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Box{
		CX: (minX + maxX) / 2,
		CY: (minY + maxY) / 2,
		W:  maxX - minX,
		H:  maxY - minY,
	}
}

// EyeBox returns the padded crop box around one eye.
func EyeBox(f Face, eye EyeIndices) (Box, bool) {
	if !f.has(eye.Upper[0], eye.Upper[1], eye.Lower[0], eye.Lower[1], eye.Left, eye.Right) {
		return Box{}, false
	}
	left, right := f[eye.Left], f[eye.Right]
	upper := midpoint(f[eye.Upper[0]], f[eye.Upper[1]])
	lower := midpoint(f[eye.Lower[0]], f[eye.Lower[1]])
	w := math.Abs(right.X - left.X)
	h := math.Abs(lower.Y-upper.Y) * EyeHeightGain
	return Box{
		CX: (left.X + right.X) / 2,
		CY: (upper.Y + lower.Y) / 2,
		W:  w * EyePad,
		H:  h * EyePad,
	}, true
}

// MouthBox returns the crop box around the mouth.
func MouthBox(f Face) (Box, bool) {
	if !f.has(UpperLip, LowerLip, MouthLeft, MouthRight) {
		return Box{}, false
	}
	top, bottom := f[UpperLip], f[LowerLip]
	left, right := f[MouthLeft], f[MouthRight]
	return Box{
		CX: (left.X + right.X) / 2,
		CY: (top.Y + bottom.Y) / 2,
		W:  math.Abs(right.X-left.X) * MouthWidthPad,
		H:  math.Abs(bottom.Y-top.Y) * MouthHeightPad,
	}, true
}

// SelectTarget picks the face to analyze. A valid pinned index wins;
// otherwise the face whose box centre is closest to the frame centre.
// Returns -1 when there are no faces.
func SelectTarget(faces []Face, pinned int) int {
	if len(faces) == 0 {
		return -1
	}
	if pinned >= 0 && pinned < len(faces) {
		return pinned
	}
	best, bestD2 := 0, math.Inf(1)
	for i, f := range faces {
		b := Bounds(f)
		dx, dy := b.CX-0.5, b.CY-0.5
		if d2 := dx*dx + dy*dy; d2 < bestD2 {
			best, bestD2 = i, d2
		}
	}
	return best
}
