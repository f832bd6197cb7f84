package repositories

import (
	"context"
	"fmt"

	"gabarito/internal/models"
	"gabarito/pkg/itemstore"
)

// RemoteProductRepository is an item store implementation of ProductRepository.
type RemoteProductRepository struct {
	store       ItemStore
	collections Collections
}

func NewRemoteProductRepository(store ItemStore, collections Collections) *RemoteProductRepository {
	return &RemoteProductRepository{store: store, collections: collections}
}

// ListPublished retrieves every published product.
func (r *RemoteProductRepository) ListPublished(ctx context.Context) ([]models.Product, error) {
	items, err := r.store.ListItems(ctx, r.collections.Products, itemstore.Query{
		Filter: []itemstore.Predicate{itemstore.Eq("status", models.ProductStatusPublished)},
		Limit:  -1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		var p models.Product
		if err := item.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %w", item.String("id"), err)
		}
		products = append(products, p)
	}
	return products, nil
}

// Create stores a new product and sets its store-assigned ID.
func (r *RemoteProductRepository) Create(ctx context.Context, product *models.Product) error {
	item, err := r.store.CreateItem(ctx, r.collections.Products, map[string]any{
		"status":        product.Status,
		"name":          product.Name,
		"sku":           product.SKU,
		"width":         product.Width,
		"height":        product.Height,
		"template_kind": product.TemplateKind,
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = item.String("id")
	return nil
}
