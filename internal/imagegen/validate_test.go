package imagegen

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"productstudio/internal/domain"
)

func pngImage(t *testing.T) domain.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return domain.NewImage("image/png", buf.Bytes())
}

func TestValidateReferences(t *testing.T) {
	ok := pngImage(t)
	if err := ValidateReferences([]domain.Image{ok}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateReferences(nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty set, got %v", err)
	}
	if err := ValidateReferences([]domain.Image{ok, ok, ok, ok}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for four images, got %v", err)
	}
	gif := domain.Image{MimeType: "image/gif", Data: ok.Data}
	if err := ValidateReferences([]domain.Image{gif}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for gif, got %v", err)
	}
	huge := domain.Image{MimeType: "image/png", Data: strings.Repeat("A", (MaxImageBytes/3+2)*4)}
	if err := ValidateImage(huge); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized image, got %v", err)
	}
}

func TestStripDataURL(t *testing.T) {
	img := StripDataURL("data:image/webp;base64,UklGRg==", "image/png")
	if img.MimeType != "image/webp" || img.Data != "UklGRg==" {
		t.Fatalf("unexpected image: %#v", img)
	}
	img = StripDataURL("UklGRg==", "image/png")
	if img.MimeType != "image/png" || img.Data != "UklGRg==" {
		t.Fatalf("unexpected plain image: %#v", img)
	}
}

func TestCompressForStorageProducesJPEG(t *testing.T) {
	out, err := CompressForStorage(pngImage(t), 70)
	if err != nil {
		t.Fatalf("CompressForStorage returned error: %v", err)
	}
	if out.MimeType != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", out.MimeType)
	}
	raw, err := out.Bytes()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || format != "jpeg" || cfg.Width != 8 {
		t.Fatalf("unexpected output: format=%q cfg=%+v err=%v", format, cfg, err)
	}
}

func TestCompressForStorageRejectsGarbage(t *testing.T) {
	if _, err := CompressForStorage(domain.Image{MimeType: "image/png", Data: "bm90IGFuIGltYWdl"}, 70); err == nil {
		t.Fatalf("expected decode error")
	}
}
