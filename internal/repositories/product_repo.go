package repositories

import (
	"context"

	"gabarito/internal/models"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	ListPublished(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
}
