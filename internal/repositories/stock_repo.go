package repositories

import (
	"context"
	"errors"

	"gabarito/internal/models"
)

// ErrStockConflict is returned when a conditional decrement found no unit left to take.
var ErrStockConflict = errors.New("stock changed concurrently")

// StockRepository defines the interface for the two-level parent/lot inventory.
type StockRepository interface {
	// OrganizationOf resolves the organization of a user; "" when the user has none.
	OrganizationOf(ctx context.Context, userID string) (string, error)
	// FindParents returns stock parents of a product, scoped to organization unless it is "".
	FindParents(ctx context.Context, productID, organization string) ([]models.StockParent, error)
	// FindOpenLots returns lots of a parent with positive quantity, oldest first.
	FindOpenLots(ctx context.Context, parentID string) ([]models.StockLot, error)
	DecrementLot(ctx context.Context, lot models.StockLot) error
	DecrementParent(ctx context.Context, parent models.StockParent) error
}

// AtomicStockDecrementer is implemented by stores that can take one unit from
// a lot and its parent in a single conditional transaction.
type AtomicStockDecrementer interface {
	DecrementAtomically(ctx context.Context, parentID, lotID string) error
}
