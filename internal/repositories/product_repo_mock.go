package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"gabarito/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// ListPublished returns published products in creation order.
func (r *MockProductRepository) ListPublished(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.Status == models.ProductStatusPublished {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool {
		if !productList[i].CreatedAt.Equal(productList[j].CreatedAt) {
			return productList[i].CreatedAt.Before(productList[j].CreatedAt)
		}
		return productList[i].ID < productList[j].ID
	})
	return productList, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	r.products[product.ID] = *product
	return nil
}
