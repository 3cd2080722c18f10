// Package imaging decodes camera captures and renders tray thumbnails.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrInvalidDataURL = errors.New("invalid data url")

// DefaultThumbnailWidth matches the tray card width.
const DefaultThumbnailWidth = 160

const thumbnailQuality = 80

// Capture is a decoded still image.
type Capture struct {
	Data     []byte
	MIMEType string
}

// Extension returns a file extension for the capture's MIME type.
func (c Capture) Extension() string {
	switch c.MIMEType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// DecodeDataURL parses a base64 data URL as produced by a canvas capture.
func DecodeDataURL(raw string) (Capture, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return Capture{}, ErrInvalidDataURL
	}
	meta := strings.TrimPrefix(header, "data:")
	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Capture{}, fmt.Errorf("%w: unsupported encoding %q", ErrInvalidDataURL, encoding)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Capture{}, fmt.Errorf("%w: not an image (%q)", ErrInvalidDataURL, mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Capture{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return Capture{}, fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	return Capture{Data: data, MIMEType: mime}, nil
}

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Thumbnail scales the image down to maxWidth, keeping its aspect ratio, and
// returns it as a JPEG data URL. Images already narrower keep their size.
func Thumbnail(data []byte, maxWidth int) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if maxWidth <= 0 {
		maxWidth = DefaultThumbnailWidth
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = max(1, height*maxWidth/width)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return EncodeDataURL("image/jpeg", buf.Bytes()), nil
}
