package repositories

import (
	"context"

	"gabarito/internal/models"
)

// AuditRepository appends history entries. Entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// AssetRepository stores original artwork files and returns their id.
type AssetRepository interface {
	Upload(ctx context.Context, artwork models.Artwork) (string, error)
}
