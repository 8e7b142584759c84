package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
)

// ImageProcessor handles image processing for uploaded pictures.
type ImageProcessor struct{}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// FitJPEG decodes an image, scales it down to fit within the bounding box
// and re-encodes it as JPEG. Profile pictures are normalized this way before
// being stored.
func (p *ImageProcessor) FitJPEG(content io.Reader, maxWidth, maxHeight int) (io.Reader, error) {
	img, _, err := image.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf, nil
}
