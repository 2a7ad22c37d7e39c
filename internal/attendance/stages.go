package attendance

import (
	"context"
	"image"
)

// Camera is the local video device. Start on an active camera is a no-op and
// Stop on an inactive one is a no-op; the device is held only between the two.
type Camera interface {
	Start(ctx context.Context) error
	Stop() error
	Frame(ctx context.Context) (image.Image, error)
	Active() bool
}

// Extractor turns a frame into a face descriptor. Load must succeed before
// Extract; calling it again with the same directory is a no-op. Extract
// returns ErrNoFace when nothing is detected. When several faces are present
// the detector's first detection is used.
type Extractor interface {
	Load(ctx context.Context, modelsDir string) error
	Extract(ctx context.Context, frame image.Image) (Descriptor, error)
}
