package classify

import (
	"context"

	"github.com/teslashibe/go-wraith/pkg/face"
)

// MockEyeClassifier is an EyeClassifier for testing.
type MockEyeClassifier struct {
	ClosedFunc func(ctx context.Context, image []byte, left, right face.Box) ([2]float64, error)
}

// ClosedProbabilities implements EyeClassifier.
func (m *MockEyeClassifier) ClosedProbabilities(ctx context.Context, image []byte, left, right face.Box) ([2]float64, error) {
	if m.ClosedFunc != nil {
		return m.ClosedFunc(ctx, image, left, right)
	}
	return [2]float64{}, nil
}

// MockMouthClassifier is a MouthClassifier for testing.
type MockMouthClassifier struct {
	PredictFunc func(ctx context.Context, image []byte, mouth face.Box) ([]float64, error)
}

// Predict implements MouthClassifier.
func (m *MockMouthClassifier) Predict(ctx context.Context, image []byte, mouth face.Box) ([]float64, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, image, mouth)
	}
	return nil, nil
}
