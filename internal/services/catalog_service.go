package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gabarito/internal/models"
	"gabarito/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// CatalogService handles business logic related to products.
type CatalogService struct {
	repo     repositories.ProductRepository
	audit    AuditPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository, audit AuditPublisher, logger *zap.Logger) *CatalogService {
	logger, _ = withDefaults(logger, nil)
	validate := validator.New()
	_ = validate.RegisterValidation("finite", isFinite)
	return &CatalogService{
		repo:     repo,
		audit:    audit,
		validate: validate,
		logger:   logger,
	}
}

// isFinite rejects NaN and infinities, which gt/lte do not catch and JSON cannot encode.
func isFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ListProducts returns published products. An unreachable store yields an empty list.
func (s *CatalogService) ListProducts(ctx context.Context) []models.Product {
	products, err := s.repo.ListPublished(ctx)
	if err != nil {
		s.logger.Warn("Failed to list products", zap.Error(err))
		return []models.Product{}
	}
	if products == nil {
		return []models.Product{}
	}
	return products
}

// RegisterProduct validates the registration, stores a published
// rectangular product and returns its id. Nothing reaches the store unless
// the dimensions are positive, finite and printable on one page.
func (s *CatalogService) RegisterProduct(ctx context.Context, reg models.ProductRegistration, actingUser string) (string, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.SKU = strings.TrimSpace(reg.SKU)
	if err := s.validate.Struct(reg); err != nil {
		return "", registrationError(err)
	}

	product := &models.Product{
		Status:       models.ProductStatusPublished,
		Name:         reg.Name,
		SKU:          reg.SKU,
		Width:        reg.Width,
		Height:       reg.Height,
		TemplateKind: models.TemplateKindRectangle,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return "", fmt.Errorf("failed to register product: %w", err)
	}

	if s.audit != nil {
		s.audit.Publish(ctx, models.AuditEntry{
			Action:  models.ActionProductRegistered,
			Subject: fmt.Sprintf("%s %gx%g cm", product.Name, product.Width, product.Height),
			User:    actingUser,
		})
	}
	return product.ID, nil
}

func registrationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	msgs := make([]string, 0, len(verrs))
	dimensions := false
	for _, fe := range verrs {
		if fe.Field() == "Width" || fe.Field() == "Height" {
			dimensions = true
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	if dimensions {
		return fmt.Errorf("%w: %s", ErrInvalidDimensions, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(msgs, "; "))
}
