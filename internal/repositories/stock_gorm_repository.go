package repositories

import (
	"context"
	"errors"
	"fmt"

	"gabarito/internal/models"

	"gorm.io/gorm"
)

// GORMStockRepository is a GORM implementation of StockRepository.
// Every decrement is conditional on the stored quantity being positive.
type GORMStockRepository struct {
	db *gorm.DB
}

func NewGORMStockRepository(db *gorm.DB) *GORMStockRepository {
	return &GORMStockRepository{db: db}
}

func (r *GORMStockRepository) OrganizationOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("user with ID %s not found", userID)
		}
		return "", fmt.Errorf("failed to get user by ID %s: %w", userID, err)
	}
	return user.Organization, nil
}

func (r *GORMStockRepository) FindParents(ctx context.Context, productID, organization string) ([]models.StockParent, error) {
	q := r.db.WithContext(ctx).Where("product = ?", productID)
	if organization != "" {
		q = q.Where("organization = ?", organization)
	}
	var parents []models.StockParent
	if err := q.Order("created_at, id").Limit(1).Find(&parents).Error; err != nil {
		return nil, fmt.Errorf("failed to find stock for product %s: %w", productID, err)
	}
	return parents, nil
}

func (r *GORMStockRepository) FindOpenLots(ctx context.Context, parentID string) ([]models.StockLot, error) {
	var lots []models.StockLot
	err := r.db.WithContext(ctx).
		Where("parent = ? AND quantity > 0", parentID).
		Order("sequence, created_at, id").
		Find(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find lots of stock %s: %w", parentID, err)
	}
	return lots, nil
}

func (r *GORMStockRepository) DecrementLot(ctx context.Context, lot models.StockLot) error {
	return decrementLot(r.db.WithContext(ctx), lot.ID)
}

func (r *GORMStockRepository) DecrementParent(ctx context.Context, parent models.StockParent) error {
	return decrementParent(r.db.WithContext(ctx), parent.ID)
}

// DecrementAtomically takes one unit from the lot and its parent, or neither.
func (r *GORMStockRepository) DecrementAtomically(ctx context.Context, parentID, lotID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decrementLot(tx, lotID); err != nil {
			return err
		}
		return decrementParent(tx, parentID)
	})
}

func decrementLot(db *gorm.DB, id string) error {
	res := db.Model(&models.StockLot{}).
		Where("id = ? AND quantity > 0", id).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement lot %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lot %s: %w", id, ErrStockConflict)
	}
	return nil
}

func decrementParent(db *gorm.DB, id string) error {
	res := db.Model(&models.StockParent{}).
		Where("id = ? AND available_quantity > 0", id).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("stock %s: %w", id, ErrStockConflict)
	}
	return nil
}
