// Package imaging decodes submitted artwork and prepares it for print
// composition: transparency flattening and RGB/CMYK sample extraction.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyData is returned when the artwork has no bytes.
	ErrEmptyData = errors.New("imaging: empty data")

	// ErrUnsupportedFormat is returned when the bytes are not a decodable raster image.
	ErrUnsupportedFormat = errors.New("imaging: unsupported format")

	// ErrImageTooLarge is returned when the declared pixel count exceeds MaxPixels.
	ErrImageTooLarge = errors.New("imaging: image too large")
)

// MaxPixels bounds width*height of decodable artwork. Decoding, flattening and
// conversion each hold a full-size buffer, so 25 megapixels costs about 300MB.
const MaxPixels = 25_000_000

// SniffMIME detects the content type from the leading bytes, ignoring any declared type.
func SniffMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// Decode decodes PNG, JPEG, GIF, BMP, TIFF or WebP artwork, auto-detecting the format.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyData
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w (detected %s)", ErrUnsupportedFormat, SniffMIME(data))
		}
		return nil, "", fmt.Errorf("imaging: decode %s header: %w", SniffMIME(data), err)
	}
	if cfg.Width < 0 || cfg.Height < 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w (detected %s)", ErrUnsupportedFormat, SniffMIME(data))
		}
		return nil, "", fmt.Errorf("imaging: decode %s: %w", SniffMIME(data), err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("imaging: decode %s: zero-sized image", format)
	}
	return img, format, nil
}
