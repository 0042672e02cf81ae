package classify

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/face"
	"gocv.io/x/gocv"
)

// Config locates the ONNX models. Empty paths disable a classifier.
type Config struct {
	EyeModel   string `yaml:"eye_model"`
	MouthModel string `yaml:"mouth_model"` // Multi-class mouth model
	YawnModel  string `yaml:"yawn_model"`  // Binary fallback when MouthModel is missing
}

// DefaultConfig returns the default model locations.
func DefaultConfig() Config {
	return Config{
		EyeModel:   "models/eye_state.onnx",
		MouthModel: "models/mouth_classifier.onnx",
		YawnModel:  "models/yawn.onnx",
	}
}

// onnxNet is a loaded network. gocv nets are not safe for concurrent use.
type onnxNet struct {
	name string
	net  gocv.Net
	mu   sync.Mutex
}

func loadNet(name, path string) (*onnxNet, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("classify: failed to load %s model from %s", name, path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	return &onnxNet{name: name, net: net}, nil
}

// forward runs one blob through the network and copies the output.
func (n *onnxNet) forward(blob gocv.Mat) ([]float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrBadOutput
	}
	probs := make([]float64, len(data))
	for i, v := range data {
		probs[i] = float64(v)
	}
	return probs, nil
}

func (n *onnxNet) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.net.Close()
}

func decode(img []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	if len(img) == 0 {
		return gocv.Mat{}, ErrEmptyImage
	}
	mat, err := gocv.IMDecode(img, flags)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrEmptyImage
	}
	return mat, nil
}

// ONNXEyeClassifier runs a grayscale eye-state model.
type ONNXEyeClassifier struct {
	net *onnxNet
}

// NewONNXEyeClassifier loads the eye model at path.
func NewONNXEyeClassifier(path string) (*ONNXEyeClassifier, error) {
	n, err := loadNet("eye", path)
	if err != nil {
		return nil, err
	}
	return &ONNXEyeClassifier{net: n}, nil
}

// ClosedProbabilities implements EyeClassifier.
func (c *ONNXEyeClassifier) ClosedProbabilities(ctx context.Context, img []byte, left, right face.Box) ([2]float64, error) {
	var probs [2]float64
	if err := ctx.Err(); err != nil {
		return probs, wrap("eye", err)
	}

	gray, err := decode(img, gocv.IMReadGrayScale)
	if err != nil {
		return probs, wrap("eye", err)
	}
	defer gray.Close()

	for i, box := range []face.Box{left, right} {
		p, err := c.eye(gray, box, i == 1)
		if err != nil {
			return probs, wrap("eye", err)
		}
		probs[i] = p
	}
	return probs, nil
}

func (c *ONNXEyeClassifier) eye(gray gocv.Mat, box face.Box, mirror bool) (float64, error) {
	rect := box.Pixels(gray.Cols(), gray.Rows())
	if rect.Empty() {
		return 0, ErrEmptyImage
	}
	crop := gray.Region(rect)
	defer crop.Close()

	src := crop
	if mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(crop, &flipped, 1)
		src = flipped
	}

	blob := gocv.BlobFromImage(src, 1.0/255.0, image.Pt(EyeWidth, EyeHeight), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	out, err := c.net.forward(blob)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Close releases the model.
func (c *ONNXEyeClassifier) Close() error {
	c.net.close()
	return nil
}

// ONNXMouthClassifier runs an RGB mouth-state model.
type ONNXMouthClassifier struct {
	net *onnxNet
}

// NewONNXMouthClassifier loads the mouth model at path.
func NewONNXMouthClassifier(path string) (*ONNXMouthClassifier, error) {
	n, err := loadNet("mouth", path)
	if err != nil {
		return nil, err
	}
	return &ONNXMouthClassifier{net: n}, nil
}

// Predict implements MouthClassifier.
func (c *ONNXMouthClassifier) Predict(ctx context.Context, img []byte, mouth face.Box) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("mouth", err)
	}

	bgr, err := decode(img, gocv.IMReadColor)
	if err != nil {
		return nil, wrap("mouth", err)
	}
	defer bgr.Close()

	rect := mouth.Pixels(bgr.Cols(), bgr.Rows())
	if rect.Empty() {
		return nil, wrap("mouth", ErrEmptyImage)
	}
	crop := bgr.Region(rect)
	defer crop.Close()

	// swapRB: decoded frames are BGR, the model was trained on RGB.
	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(MouthWidth, MouthHeight), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	probs, err := c.net.forward(blob)
	if err != nil {
		return nil, wrap("mouth", err)
	}
	return probs, nil
}

// Close releases the model.
func (c *ONNXMouthClassifier) Close() error {
	c.net.close()
	return nil
}

// Set holds whichever classifiers could be loaded.
type Set struct {
	Eye   EyeClassifier
	Mouth MouthClassifier

	closers []func() error
}

// Load loads the configured models. Missing or broken models are logged
// and left nil; the mouth model falls back to the binary yawn model.
func Load(cfg Config) *Set {
	s := &Set{}

	if cfg.EyeModel != "" {
		if eye, err := NewONNXEyeClassifier(cfg.EyeModel); err != nil {
			log.Warn("eye classifier not available", "error", err)
		} else {
			s.Eye = eye
			s.closers = append(s.closers, eye.Close)
			log.Info("eye classifier loaded", "path", cfg.EyeModel)
		}
	}

	for _, path := range []string{cfg.MouthModel, cfg.YawnModel} {
		if path == "" {
			continue
		}
		mouth, err := NewONNXMouthClassifier(path)
		if err != nil {
			log.Warn("mouth classifier not available", "path", path, "error", err)
			continue
		}
		s.Mouth = mouth
		s.closers = append(s.closers, mouth.Close)
		log.Info("mouth classifier loaded", "path", path)
		break
	}
	return s
}

// Close releases every loaded model.
func (s *Set) Close() error {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
	return nil
}
