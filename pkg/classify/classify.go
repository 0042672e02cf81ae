// Package classify runs the optional eye-state and mouth-state image
// classifiers on crops of the frame image.
//
// Classifiers are collaborators, not requirements: any failure is returned
// as an *InferenceError and the caller falls back to the landmark metric
// for that frame.
package classify

import (
	"context"

	"github.com/teslashibe/go-wraith/pkg/face"
)

// Input sizes the models were trained on.
const (
	EyeWidth    = 48
	EyeHeight   = 24
	MouthWidth  = 64
	MouthHeight = 64
)

// EyeClassifier returns P(closed) for the left and right eye. The right
// eye crop is mirrored so both eyes reach the model in the same
// orientation.
type EyeClassifier interface {
	ClosedProbabilities(ctx context.Context, image []byte, left, right face.Box) ([2]float64, error)
}

// MouthClassifier returns class probabilities for the mouth crop. A single
// value is P(yawn) from a binary model; longer vectors follow
// detect.MouthLabels.
type MouthClassifier interface {
	Predict(ctx context.Context, image []byte, mouth face.Box) ([]float64, error)
}
