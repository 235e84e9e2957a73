package imagegen

import (
	"fmt"
	"strings"

	"productstudio/internal/domain"
)

const (
	// MaxReferenceImages bounds how many reference images a run accepts.
	MaxReferenceImages = 3
	// MaxImageBytes bounds a single decoded reference image.
	MaxImageBytes = 10 << 20
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImage rejects oversized payloads and unsupported formats.
func ValidateImage(img domain.Image) error {
	mime := strings.ToLower(strings.TrimSpace(img.MimeType))
	if !allowedMimeTypes[mime] {
		return fmt.Errorf("%w: unsupported image type %q (accepted: JPG, PNG, WebP)", domain.ErrInvalidInput, img.MimeType)
	}
	if img.Data == "" {
		return fmt.Errorf("%w: image payload is empty", domain.ErrInvalidInput)
	}
	if img.DecodedLen() > MaxImageBytes {
		return fmt.Errorf("%w: image exceeds %dMB", domain.ErrInvalidInput, MaxImageBytes>>20)
	}
	return nil
}

// ValidateReferences checks the reference set of a generation run.
func ValidateReferences(images []domain.Image) error {
	if len(images) == 0 {
		return fmt.Errorf("%w: at least one reference image is required", domain.ErrInvalidInput)
	}
	if len(images) > MaxReferenceImages {
		return fmt.Errorf("%w: at most %d reference images are accepted", domain.ErrInvalidInput, MaxReferenceImages)
	}
	for i, img := range images {
		if err := ValidateImage(img); err != nil {
			return fmt.Errorf("reference image %d: %w", i+1, err)
		}
	}
	return nil
}

// StripDataURL turns "data:image/png;base64,AAAA" into an Image. Plain
// base64 payloads are returned with the fallback mime type.
func StripDataURL(raw, fallbackMime string) domain.Image {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return domain.Image{MimeType: fallbackMime, Data: raw}
	}
	header, data, ok := strings.Cut(raw, ",")
	if !ok {
		return domain.Image{MimeType: fallbackMime, Data: ""}
	}
	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")
	if mime == "" {
		mime = fallbackMime
	}
	return domain.Image{MimeType: mime, Data: data}
}
