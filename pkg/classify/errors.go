package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrModelNotFound is returned when a model file does not exist.
	ErrModelNotFound = errors.New("classify: model not found")

	// ErrEmptyImage is returned when the frame carries no decodable image.
	ErrEmptyImage = errors.New("classify: empty image")

	// ErrBadOutput is returned when the model output has an unexpected shape.
	ErrBadOutput = errors.New("classify: unexpected model output")
)

// InferenceError wraps a failure of one classifier call.
type InferenceError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("classify [%s]: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

func wrap(model string, err error) error {
	if err == nil {
		return nil
	}
	return &InferenceError{Model: model, Err: err}
}
