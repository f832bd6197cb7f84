package models

import (
	"fmt"
	"strings"
)

// ColorMode selects the output color representation.
type ColorMode string

const (
	ColorModeCMYK ColorMode = "cmyk"
	ColorModeRGB  ColorMode = "rgb"
)

// ParseColorMode accepts "cmyk" or "rgb" in any case; empty means CMYK.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColorModeCMYK:
		return ColorModeCMYK, nil
	case ColorModeRGB:
		return ColorModeRGB, nil
	}
	return "", fmt.Errorf("unknown color mode %q", s)
}

// Label is the upper-case form used in filenames.
func (m ColorMode) Label() string { return strings.ToUpper(string(m)) }

// BlankFill selects how a page without artwork is painted.
type BlankFill string

const (
	// BlankFillWhite paints paper white: CMYK (0,0,0,0) or RGB (1,1,1).
	BlankFillWhite BlankFill = "white"
	// BlankFillRegistration paints a saturated cyan block used as a press test marker.
	BlankFillRegistration BlankFill = "registration"
)

// PageSpec is the physical page in centimeters plus its color mode.
type PageSpec struct {
	Width  float64
	Height float64
	Mode   ColorMode
}

// Artwork is an uploaded image as received, before any decoding.
type Artwork struct {
	Data        []byte
	ContentType string
	Filename    string
}

// TemplateRequest asks for a blank template or, with artwork, a proof.
type TemplateRequest struct {
	Page           PageSpec
	Label          string
	Artwork        *Artwork
	PersistArtwork bool
	ProductID      string
}

// IsProof reports whether the request carries artwork.
func (r TemplateRequest) IsProof() bool {
	return r.Artwork != nil && len(r.Artwork.Data) > 0
}

// Composition is the composer output.
type Composition struct {
	PDF             []byte
	ArtworkEmbedded bool
	// Diagnostic is the message drawn on the page instead of the artwork, if any.
	Diagnostic string
}

// RenderedDocument is a finished PDF ready to stream to the caller.
type RenderedDocument struct {
	Filename string
	PDF      []byte
}
