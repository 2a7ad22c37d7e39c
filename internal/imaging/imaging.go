// Package imaging prepares camera frames for face extraction.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// JPEGQuality is the quality used when frames are handed to an extractor.
const JPEGQuality = 90

// FitWithin scales img down so its longer side is at most maxSize, keeping the
// aspect ratio. Images already within bounds, and a non-positive maxSize,
// return img unchanged.
func FitWithin(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, height*maxSize/width)
	} else {
		newHeight = maxSize
		newWidth = max(1, width*maxSize/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareFrame resizes a frame to maxSize and encodes it as a JPEG.
func PrepareFrame(img image.Image, maxSize int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("empty frame")
	}
	return EncodeJPEG(FitWithin(img, maxSize))
}
