package repositories

import (
	"context"
	"fmt"

	"gabarito/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAuditRepository is a GORM implementation of AuditRepository.
type GORMAuditRepository struct {
	db *gorm.DB
}

func NewGORMAuditRepository(db *gorm.DB) *GORMAuditRepository {
	return &GORMAuditRepository{db: db}
}

func (r *GORMAuditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	entry.ID = uuid.New().String()
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// GORMAssetRepository stores artwork bytes in the assets table.
type GORMAssetRepository struct {
	db *gorm.DB
}

func NewGORMAssetRepository(db *gorm.DB) *GORMAssetRepository {
	return &GORMAssetRepository{db: db}
}

func (r *GORMAssetRepository) Upload(ctx context.Context, artwork models.Artwork) (string, error) {
	asset := models.Asset{
		ID:          uuid.New().String(),
		Filename:    artwork.Filename,
		ContentType: artwork.ContentType,
		Data:        artwork.Data,
	}
	if err := r.db.WithContext(ctx).Create(&asset).Error; err != nil {
		return "", fmt.Errorf("failed to store artwork %s: %w", artwork.Filename, err)
	}
	return asset.ID, nil
}

// AutoMigrate creates the tables used by the GORM repositories.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.StockParent{},
		&models.StockLot{},
		&models.AuditEntry{},
		&models.Asset{},
	)
}
