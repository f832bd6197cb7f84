package repositories

import (
	"context"
	"fmt"

	"gabarito/internal/models"
	"gabarito/pkg/itemstore"
)

// RemoteStockRepository is an item store implementation of StockRepository.
// The store has no conditional update, so decrements write observed-1 and
// callers must serialize them.
type RemoteStockRepository struct {
	store       ItemStore
	collections Collections
}

func NewRemoteStockRepository(store ItemStore, collections Collections) *RemoteStockRepository {
	return &RemoteStockRepository{store: store, collections: collections}
}

func (r *RemoteStockRepository) OrganizationOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	item, err := r.store.GetItem(ctx, r.collections.Users, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user by ID %s: %w", userID, err)
	}
	return item.String("organization"), nil
}

func (r *RemoteStockRepository) FindParents(ctx context.Context, productID, organization string) ([]models.StockParent, error) {
	filter := []itemstore.Predicate{itemstore.Eq("product", productID)}
	if organization != "" {
		filter = append(filter, itemstore.Eq("organization", organization))
	}
	items, err := r.store.ListItems(ctx, r.collections.StockParent, itemstore.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to find stock for product %s: %w", productID, err)
	}
	parents := make([]models.StockParent, 0, len(items))
	for _, item := range items {
		var p models.StockParent
		if err := item.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode stock %s: %w", item.String("id"), err)
		}
		parents = append(parents, p)
	}
	return parents, nil
}

func (r *RemoteStockRepository) FindOpenLots(ctx context.Context, parentID string) ([]models.StockLot, error) {
	items, err := r.store.ListItems(ctx, r.collections.StockLot, itemstore.Query{
		Filter: []itemstore.Predicate{itemstore.Eq("parent", parentID), itemstore.Gt("quantity", "0")},
		Sort:   r.collections.LotSort,
		Limit:  -1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find lots of stock %s: %w", parentID, err)
	}
	lots := make([]models.StockLot, 0, len(items))
	for _, item := range items {
		var l models.StockLot
		if err := item.Decode(&l); err != nil {
			return nil, fmt.Errorf("failed to decode lot %s: %w", item.String("id"), err)
		}
		lots = append(lots, l)
	}
	return lots, nil
}

func (r *RemoteStockRepository) DecrementLot(ctx context.Context, lot models.StockLot) error {
	if lot.Quantity <= 0 {
		return fmt.Errorf("lot %s: %w", lot.ID, ErrStockConflict)
	}
	if _, err := r.store.UpdateItem(ctx, r.collections.StockLot, lot.ID, map[string]int{"quantity": lot.Quantity - 1}); err != nil {
		return fmt.Errorf("failed to decrement lot %s: %w", lot.ID, err)
	}
	return nil
}

func (r *RemoteStockRepository) DecrementParent(ctx context.Context, parent models.StockParent) error {
	if parent.Available <= 0 {
		return fmt.Errorf("stock %s: %w", parent.ID, ErrStockConflict)
	}
	if _, err := r.store.UpdateItem(ctx, r.collections.StockParent, parent.ID, map[string]int{"available_quantity": parent.Available - 1}); err != nil {
		return fmt.Errorf("failed to decrement stock %s: %w", parent.ID, err)
	}
	return nil
}
