package pdf

import (
	"errors"
	"fmt"
	"io"

	pdfimage "seehuhn.de/go/pdf/graphics/image"
)

var (
	// ErrSampleLength is returned when the sample buffer does not match width*height*channels.
	ErrSampleLength = errors.New("pdf: sample buffer length does not match image geometry")

	// ErrUnsupportedColorSpace is returned for color spaces the writer cannot embed.
	ErrUnsupportedColorSpace = errors.New("pdf: unsupported image color space")
)

// Image is an 8 bits-per-component raster embedded as a Flate-compressed XObject.
type Image struct {
	Width  int
	Height int
	Space  ColorSpace

	samples []byte
	dict    *pdfimage.Dict
}

// NewImage wraps interleaved 8-bit samples, row by row from the top-left corner.
func NewImage(space ColorSpace, width, height int, samples []byte) (*Image, error) {
	channels := space.Channels()
	if channels == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedColorSpace, space)
	}
	if width <= 0 || height <= 0 || len(samples) != width*height*channels {
		return nil, fmt.Errorf("%w: %dx%d %s, got %d bytes", ErrSampleLength, width, height, space, len(samples))
	}
	return &Image{Width: width, Height: height, Space: space, samples: samples}, nil
}

func (img *Image) xobject() *pdfimage.Dict {
	if img.dict != nil {
		return img.dict
	}
	channels := img.Space.Channels()
	img.dict = &pdfimage.Dict{
		Width:            img.Width,
		Height:           img.Height,
		ColorSpace:       img.Space.space(),
		BitsPerComponent: 8,
		Data: &pdfimage.FlateSource{
			WriteData: func(w io.Writer) error {
				_, err := w.Write(img.samples)
				return err
			},
			Predictor:        15,
			Width:            img.Width,
			Colors:           channels,
			BitsPerComponent: 8,
		},
	}
	return img.dict
}
