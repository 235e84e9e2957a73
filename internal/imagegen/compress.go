package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"productstudio/internal/domain"
)

// DefaultStorageQuality is the JPEG quality used for stored outputs.
const DefaultStorageQuality = 70

// CompressForStorage re-encodes img as JPEG at the given quality (1..100).
// Transparent areas are flattened onto white.
func CompressForStorage(img domain.Image, quality int) (domain.Image, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultStorageQuality
	}
	raw, err := img.Bytes()
	if err != nil {
		return domain.Image{}, err
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode %s: %w", img.MimeType, err)
	}

	bounds := decoded.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, decoded, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return domain.Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return domain.NewImage("image/jpeg", buf.Bytes()), nil
}
