package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"gabarito/internal/models"
	"gabarito/internal/repositories"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLabel names documents generated without a label.
const DefaultLabel = "Gabarito"

// Composer renders the PDF for a page and optional artwork.
type Composer interface {
	Compose(ctx context.Context, page models.PageSpec, artwork *models.Artwork) (*models.Composition, error)
}

// StockDecrementer consumes one unit of a product's stock without failing.
type StockDecrementer interface {
	DecrementOneUnit(ctx context.Context, productID, userID string)
}

// TemplateService turns generation requests into downloadable documents.
type TemplateService struct {
	composer          Composer
	inventory         StockDecrementer
	assets            repositories.AssetRepository
	audit             AuditPublisher
	sideEffectTimeout time.Duration
	logger            *zap.Logger
	tracer            trace.Tracer

	uploads sync.WaitGroup
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(composer Composer, inventory StockDecrementer, assets repositories.AssetRepository, audit AuditPublisher, sideEffectTimeout time.Duration, logger *zap.Logger, tracer trace.Tracer) *TemplateService {
	logger, tracer = withDefaults(logger, tracer)
	return &TemplateService{
		composer:          composer,
		inventory:         inventory,
		assets:            assets,
		audit:             audit,
		sideEffectTimeout: sideEffectTimeout,
		logger:            logger,
		tracer:            tracer,
	}
}

// Generate validates the request, starts the optional artwork upload,
// composes the PDF, decrements stock for a proof with embedded artwork and a
// product, and appends a history entry. Only invalid input and composition
// failures are returned as errors.
func (s *TemplateService) Generate(ctx context.Context, req models.TemplateRequest, actingUser string) (*models.RenderedDocument, error) {
	ctx, span := s.tracer.Start(ctx, "template.Generate", trace.WithAttributes(
		attribute.Bool("request.proof", req.IsProof()),
		attribute.String("product.id", req.ProductID),
	))
	defer span.End()

	if err := ValidatePage(req.Page); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var artwork *models.Artwork
	if req.IsProof() {
		artwork = req.Artwork
		if req.PersistArtwork && s.assets != nil {
			s.uploadAsync(ctx, *artwork)
		}
	}

	composition, err := s.composer.Compose(ctx, req.Page, artwork)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to compose document: %w", err)
	}

	if composition.ArtworkEmbedded && req.ProductID != "" && s.inventory != nil {
		s.inventory.DecrementOneUnit(ctx, req.ProductID, actingUser)
	}

	kind, action := "TEMPLATE", models.ActionTemplateGenerated
	if req.IsProof() {
		kind, action = "PROOF", models.ActionProofGenerated
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = DefaultLabel
	}

	if s.audit != nil {
		s.audit.Publish(ctx, models.AuditEntry{
			Action:  action,
			Subject: fmt.Sprintf("%s %gx%g cm %s", label, req.Page.Width, req.Page.Height, req.Page.Mode.Label()),
			User:    actingUser,
		})
	}

	return &models.RenderedDocument{
		Filename: fmt.Sprintf("%s_%s_%s.pdf", kind, SanitizeLabel(label), req.Page.Mode.Label()),
		PDF:      composition.PDF,
	}, nil
}

// uploadAsync stores the original artwork bytes in the background. Failures
// are logged only.
func (s *TemplateService) uploadAsync(ctx context.Context, artwork models.Artwork) {
	ctx, cancel := sideEffectContext(ctx, s.sideEffectTimeout)
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		defer cancel()
		id, err := s.assets.Upload(ctx, artwork)
		if err != nil {
			s.logger.Warn("Artwork upload failed",
				zap.String("filename", artwork.Filename), zap.Error(err))
			return
		}
		s.logger.Info("Artwork uploaded", zap.String("filename", artwork.Filename), zap.String("asset_id", id))
	}()
}

// Wait blocks until in-flight artwork uploads have finished.
func (s *TemplateService) Wait() {
	s.uploads.Wait()
}

// SanitizeLabel strips accents and replaces anything outside letters, digits,
// '-' and '_' so the label is safe inside a Content-Disposition filename.
func SanitizeLabel(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, label)
	if err != nil {
		stripped = label
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range stripped {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if out == "" {
		return DefaultLabel
	}
	return out
}
