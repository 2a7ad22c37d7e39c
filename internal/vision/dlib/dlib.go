// Package dlib extracts 128-dimensional face descriptors with dlib through
// go-face.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/imaging"
)

// Model files expected in the models directory.
const (
	DetectorModel   = "mmod_human_face_detector.dat"
	LandmarksModel  = "shape_predictor_5_face_landmarks.dat"
	RecognizerModel = "dlib_face_recognition_resnet_model_v1.dat"
)

// ErrModelsNotLoaded is returned by Extract before Load succeeded.
var ErrModelsNotLoaded = errors.New("face models not loaded")

// Extractor implements attendance.Extractor on top of a go-face recognizer.
type Extractor struct {
	mu        sync.Mutex
	rec       *face.Recognizer
	modelsDir string
	maxSize   int
	cnn       bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFrameSize bounds the frame's longer side before detection.
func WithMaxFrameSize(px int) Option {
	return func(e *Extractor) { e.maxSize = px }
}

// WithCNNDetector uses the MMOD CNN detector instead of HOG. Slower, but
// finds faces at steeper angles.
func WithCNNDetector() Option {
	return func(e *Extractor) { e.cnn = true }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{maxSize: 800}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckModels verifies that dir holds every model file.
func CheckModels(dir string) error {
	var missing []error
	for _, name := range []string{DetectorModel, LandmarksModel, RecognizerModel} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, fmt.Errorf("model %s: %w", name, err))
		}
	}
	return errors.Join(missing...)
}

// Load initializes the recognizer from modelsDir. Loading the same directory
// twice is a no-op; a different directory replaces the recognizer.
func (e *Extractor) Load(ctx context.Context, modelsDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec != nil && e.modelsDir == modelsDir {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckModels(modelsDir); err != nil {
		return err
	}

	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	if e.rec != nil {
		e.rec.Close()
	}
	e.rec = rec
	e.modelsDir = modelsDir
	return nil
}

// Extract detects the first face in frame and returns its descriptor.
func (e *Extractor) Extract(ctx context.Context, frame image.Image) (attendance.Descriptor, error) {
	data, err := imaging.PrepareFrame(frame, e.maxSize)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil {
		return nil, ErrModelsNotLoaded
	}
	// dlib calls cannot be interrupted; honour cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var f *face.Face
	if e.cnn {
		f, err = e.rec.RecognizeSingleCNN(data)
	} else {
		f, err = e.rec.RecognizeSingle(data)
	}
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if f == nil {
		return nil, attendance.ErrNoFace
	}

	d := make(attendance.Descriptor, len(f.Descriptor))
	copy(d, f.Descriptor[:])
	return d, nil
}

// Close releases the recognizer.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}
