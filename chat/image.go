package chat

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
)

const imagePrefix = "data:image"

// ErrNotImage is returned by ParseImage for content that is not an inline
// image payload.
var ErrNotImage = errors.New("content is not an inline image")

// Image is a decoded inline image payload.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      []byte
	Width     int // zero when the format is not decodable
	Height    int
}

// IsImageContent reports whether content looks like a data-URL image.
func IsImageContent(content string) bool {
	return strings.HasPrefix(content, imagePrefix)
}

// ParseImage decodes a "data:image/<fmt>;base64,<payload>" string.
// Dimensions are filled in for png, jpeg and gif; other formats keep the raw
// bytes with zero dimensions.
func ParseImage(content string) (Image, error) {
	if !IsImageContent(content) {
		return Image{}, ErrNotImage
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(content, "data:"), ",")
	if !ok {
		return Image{}, fmt.Errorf("parse image: missing payload separator")
	}
	mediaType, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return Image{}, fmt.Errorf("parse image: unsupported encoding %q", params)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Image{}, fmt.Errorf("parse image: %w", err)
		}
	}

	img := Image{MediaType: mediaType, Data: data}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	return img, nil
}

// Format returns the subtype of the media type ("png" for "image/png").
func (i Image) Format() string {
	_, sub, ok := strings.Cut(i.MediaType, "/")
	if !ok {
		return i.MediaType
	}
	return sub
}

// Extension returns a file extension for saving the image.
func (i Image) Extension() string {
	switch f := i.Format(); f {
	case "jpeg":
		return ".jpg"
	case "svg+xml":
		return ".svg"
	case "":
		return ".bin"
	default:
		return "." + f
	}
}

// Save writes the raw image bytes to path.
func (i Image) Save(path string) error {
	if err := os.WriteFile(path, i.Data, 0o644); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}
