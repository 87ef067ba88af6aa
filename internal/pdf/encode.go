package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	JPEGMIMEType       = "image/jpeg"
	DefaultJPEGQuality = 90
)

// EncodeJPEG compresses a rendered page. Quality is clamped to the 1-100 range accepted by image/jpeg.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to encode")
	}
	quality = max(1, min(quality, 100))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
