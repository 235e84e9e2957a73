package domain

import (
	"encoding/base64"
	"fmt"
)

// Image is a base64 encoded payload (without the data: prefix) and its mime type.
type Image struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Bytes decodes the payload.
func (i Image) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}

// DecodedLen estimates the decoded size without allocating.
func (i Image) DecodedLen() int {
	return base64.StdEncoding.DecodedLen(len(i.Data))
}

// NewImage encodes raw bytes into an Image.
func NewImage(mimeType string, raw []byte) Image {
	return Image{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(raw)}
}

// Extension returns the file extension, with the dot, for the mime type.
func (i Image) Extension() string {
	switch i.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
