// Package webcam implements attendance.Camera over a local capture device.
package webcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrNotStarted is returned by Frame when the device is not open.
	ErrNotStarted = errors.New("camera not started")
	// ErrEmptyFrame is returned when the device produced no image.
	ErrEmptyFrame = errors.New("camera returned an empty frame")
)

// Camera captures frames from an OpenCV video device.
type Camera struct {
	device any

	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// New creates a camera for device, either a device index or a stream URL.
// The device is opened by Start.
func New(device any) *Camera {
	return &Camera{device: device}
}

// Start opens the device. It is a no-op when already started.
func (c *Camera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	capture, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("opening camera %v: %w", c.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("opening camera %v: device unavailable", c.device)
	}
	c.capture = capture
	c.frame = gocv.NewMat()
	return nil
}

// Stop releases the device. It is a no-op when not started.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.frame.Close()
	c.capture = nil
	if err != nil {
		return fmt.Errorf("closing camera: %w", err)
	}
	return nil
}

// Active reports whether the device is open.
func (c *Camera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

// Frame reads the next frame from the device.
func (c *Camera) Frame(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, ErrEmptyFrame
	}

	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}
