package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gabarito/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestGORMProductRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGORMProductRepository(db)
	ctx := context.Background()

	published := &models.Product{Status: models.ProductStatusPublished, Name: "Caneca", Width: 20, Height: 9.5}
	require.NoError(t, repo.Create(ctx, published))
	assert.NotEmpty(t, published.ID)
	require.NoError(t, repo.Create(ctx, &models.Product{Status: "draft", Name: "Rascunho", Width: 1, Height: 1}))

	products, err := repo.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Caneca", products[0].Name)
	assert.Equal(t, 9.5, products[0].Height)
}

func seedGORMStock(t *testing.T, db *gorm.DB, parentQty int, lots ...models.StockLot) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{ID: "u-1", Organization: "org-1"}).Error)
	require.NoError(t, db.Create(&models.StockParent{ID: "parent-1", Product: "prod-1", Organization: "org-1", Available: parentQty}).Error)
	for _, l := range lots {
		l.Parent = "parent-1"
		require.NoError(t, db.Create(&l).Error)
	}
}

func TestGORMStockRepository_Queries(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seedGORMStock(t, db, 5,
		models.StockLot{ID: "late", Sequence: 1, Quantity: 2, CreatedAt: base.Add(time.Hour)},
		models.StockLot{ID: "early", Sequence: 1, Quantity: 3, CreatedAt: base},
		models.StockLot{ID: "empty", Sequence: 0, Quantity: 0, CreatedAt: base},
	)
	repo := NewGORMStockRepository(db)
	ctx := context.Background()

	org, err := repo.OrganizationOf(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org)
	_, err = repo.OrganizationOf(ctx, "ghost")
	assert.Error(t, err)
	org, err = repo.OrganizationOf(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, org)

	parents, err := repo.FindParents(ctx, "prod-1", "org-1")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, 5, parents[0].Available)

	parents, err = repo.FindParents(ctx, "prod-1", "org-2")
	require.NoError(t, err)
	assert.Empty(t, parents)

	parents, err = repo.FindParents(ctx, "prod-1", "")
	require.NoError(t, err)
	assert.Len(t, parents, 1)

	lots, err := repo.FindOpenLots(ctx, "parent-1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "early", lots[0].ID)
	assert.Equal(t, "late", lots[1].ID)
}

func TestGORMStockRepository_AtomicDecrement(t *testing.T) {
	db := newTestDB(t)
	seedGORMStock(t, db, 1, models.StockLot{ID: "lot-1", Quantity: 1})
	repo := NewGORMStockRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.DecrementAtomically(ctx, "parent-1", "lot-1"))
	err := repo.DecrementAtomically(ctx, "parent-1", "lot-1")
	assert.ErrorIs(t, err, ErrStockConflict)

	var parent models.StockParent
	require.NoError(t, db.First(&parent, "id = ?", "parent-1").Error)
	assert.Equal(t, 0, parent.Available)
	var lot models.StockLot
	require.NoError(t, db.First(&lot, "id = ?", "lot-1").Error)
	assert.Equal(t, 0, lot.Quantity)
}

func TestGORMStockRepository_AtomicDecrementRollsBack(t *testing.T) {
	db := newTestDB(t)
	// Parent already drained while the lot still shows a unit.
	seedGORMStock(t, db, 0, models.StockLot{ID: "lot-1", Quantity: 1})
	repo := NewGORMStockRepository(db)

	err := repo.DecrementAtomically(context.Background(), "parent-1", "lot-1")
	assert.ErrorIs(t, err, ErrStockConflict)

	var lot models.StockLot
	require.NoError(t, db.First(&lot, "id = ?", "lot-1").Error)
	assert.Equal(t, 1, lot.Quantity, "lot decrement must roll back with the parent")
}

func TestGORMStockRepository_ConditionalDecrementNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	seedGORMStock(t, db, 1, models.StockLot{ID: "lot-1", Quantity: 1})
	repo := NewGORMStockRepository(db)
	ctx := context.Background()

	// A stale read of quantity 1 must not write below zero.
	stale := models.StockLot{ID: "lot-1", Quantity: 1}
	require.NoError(t, repo.DecrementLot(ctx, stale))
	assert.ErrorIs(t, repo.DecrementLot(ctx, stale), ErrStockConflict)

	staleParent := models.StockParent{ID: "parent-1", Available: 1}
	require.NoError(t, repo.DecrementParent(ctx, staleParent))
	assert.ErrorIs(t, repo.DecrementParent(ctx, staleParent), ErrStockConflict)
}

func TestGORMAuditAndAssetRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewGORMAuditRepository(db).Append(ctx, models.AuditEntry{
		Action: models.ActionTemplateGenerated, Subject: "Caneca 10x5 cm RGB", User: "u-1",
	}))
	var entries []models.AuditEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())

	id, err := NewGORMAssetRepository(db).Upload(ctx, models.Artwork{Data: []byte{1, 2, 3}, Filename: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	var asset models.Asset
	require.NoError(t, db.First(&asset, "id = ?", id).Error)
	assert.Equal(t, []byte{1, 2, 3}, asset.Data)
	assert.Equal(t, "a.png", asset.Filename)
}
