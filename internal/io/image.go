package ioutils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// CoverArt prepares album artwork for embedding in ID3 tags.
//
// Catalog artwork is usually a 640x640 JPEG, but some images are PNG or
// WebP. CoverArt decodes any of those, scales the image down to fit MaxSize
// and re-encodes it as JPEG.
//
// Example:
//
//	cover := &CoverArt{MaxSize: 500, Quality: 90}
//	jpegData, err := cover.Prepare(imageData)
type CoverArt struct {
	// MaxSize bounds both dimensions in pixels. Zero keeps the original size.
	MaxSize int

	// Quality is the JPEG quality, 1-100. Zero means 90.
	Quality int
}

// Prepare returns data scaled to fit MaxSize and encoded as JPEG.
//
// The aspect ratio is preserved and images are never scaled up. The
// Catmull-Rom kernel is used for downscaling.
func (c *CoverArt) Prepare(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cover art: %w", err)
	}

	bounds := img.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), c.MaxSize)
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode cover art: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales width and height down to fit within limit x limit.
func fit(width, height, limit int) (int, int) {
	if limit <= 0 || (width <= limit && height <= limit) || width == 0 || height == 0 {
		return width, height
	}
	if width >= height {
		return limit, max(1, height*limit/width)
	}
	return max(1, width*limit/height), limit
}
