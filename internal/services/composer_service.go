package services

import (
	"context"
	"fmt"

	"gabarito/internal/imaging"
	"gabarito/internal/models"
	"gabarito/pkg/pdf"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	diagnosticOffset   = 10.0
	diagnosticFontSize = 8.0
)

// ComposerService renders one-page templates and proofs.
type ComposerService struct {
	blankFill models.BlankFill
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewComposerService creates a new ComposerService.
func NewComposerService(blankFill models.BlankFill, logger *zap.Logger, tracer trace.Tracer) *ComposerService {
	if blankFill == "" {
		blankFill = models.BlankFillWhite
	}
	logger, tracer = withDefaults(logger, tracer)
	return &ComposerService{blankFill: blankFill, logger: logger, tracer: tracer}
}

// ValidatePage checks the page dimensions and color mode. Each side must be
// positive, finite and at most pdf.MaxPageCentimeters.
func ValidatePage(page models.PageSpec) error {
	if err := pdf.Centimeters(page.Width, page.Height).Validate(); err != nil {
		return fmt.Errorf("%w: got %gx%g cm, max %g cm", ErrInvalidDimensions, page.Width, page.Height, pdf.MaxPageCentimeters)
	}
	if page.Mode != models.ColorModeCMYK && page.Mode != models.ColorModeRGB {
		return fmt.Errorf("%w: got %q", ErrInvalidColorMode, page.Mode)
	}
	return nil
}

// Compose renders a page of exactly page.Width x page.Height centimeters.
// Without artwork the page is painted with the blank fill. With artwork the
// image is flattened over white, converted to the page color mode and
// stretched over the whole page. If the artwork cannot be placed, the page
// carries a one-line diagnostic instead and Compose still succeeds.
func (s *ComposerService) Compose(ctx context.Context, page models.PageSpec, artwork *models.Artwork) (*models.Composition, error) {
	_, span := s.tracer.Start(ctx, "composer.Compose", trace.WithAttributes(
		attribute.Float64("page.width_cm", page.Width),
		attribute.Float64("page.height_cm", page.Height),
		attribute.String("page.color_mode", string(page.Mode)),
		attribute.Bool("artwork.present", artwork != nil && len(artwork.Data) > 0),
	))
	defer span.End()

	if err := ValidatePage(page); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	w, err := pdf.New(pdf.Centimeters(page.Width, page.Height))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidDimensions, err)
	}
	w.SetTitle(fmt.Sprintf("%g x %g cm %s", page.Width, page.Height, page.Mode.Label()))

	result := &models.Composition{}
	if artwork == nil || len(artwork.Data) == 0 {
		s.paintBlank(w, page.Mode)
	} else if img, err := s.prepareArtwork(artwork, page.Mode); err != nil {
		result.Diagnostic = fmt.Sprintf("artwork could not be placed: %v", err)
		s.logger.Warn("Artwork replaced by diagnostic",
			zap.String("filename", artwork.Filename),
			zap.String("content_type", artwork.ContentType),
			zap.Error(err))
		span.AddEvent("artwork.diagnostic", trace.WithAttributes(attribute.String("error", err.Error())))

		s.paintBlank(w, page.Mode)
		w.SetFillColor(textColor(page.Mode))
		w.SetFont(diagnosticFontSize)
		w.Text(diagnosticOffset, diagnosticOffset, result.Diagnostic)
	} else {
		size := w.PaperSize()
		w.DrawImage(img, 0, 0, size.Width, size.Height)
		result.ArtworkEmbedded = true
	}

	out, err := w.ProduceBytes()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	result.PDF = out
	span.SetAttributes(attribute.Int("pdf.bytes", len(out)))
	return result, nil
}

func (s *ComposerService) paintBlank(w *pdf.Writer, mode models.ColorMode) {
	size := w.PaperSize()
	w.SetFillColor(blankColor(s.blankFill, mode))
	w.Rect(0, 0, size.Width, size.Height)
}

// prepareArtwork decodes, flattens and converts the artwork. Decoder panics
// are reported as errors so a hostile file only costs the diagnostic page.
func (s *ComposerService) prepareArtwork(artwork *models.Artwork, mode models.ColorMode) (img *pdf.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()

	src, _, err := imaging.Decode(artwork.Data)
	if err != nil {
		return nil, err
	}
	flat := imaging.Flatten(src)
	bounds := flat.Bounds()

	if mode == models.ColorModeRGB {
		return pdf.NewImage(pdf.DeviceRGB, bounds.Dx(), bounds.Dy(), imaging.RGBSamples(flat))
	}
	return pdf.NewImage(pdf.DeviceCMYK, bounds.Dx(), bounds.Dy(), imaging.CMYKSamples(flat))
}

func blankColor(fill models.BlankFill, mode models.ColorMode) pdf.Color {
	if fill == models.BlankFillRegistration {
		if mode == models.ColorModeRGB {
			return pdf.RGB(0, 1, 1)
		}
		return pdf.CMYK(1, 0, 0, 0)
	}
	if mode == models.ColorModeRGB {
		return pdf.RGB(1, 1, 1)
	}
	return pdf.CMYK(0, 0, 0, 0)
}

func textColor(mode models.ColorMode) pdf.Color {
	if mode == models.ColorModeRGB {
		return pdf.RGB(0, 0, 0)
	}
	return pdf.CMYK(0, 0, 0, 1)
}
