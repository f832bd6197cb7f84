package repositories

import (
	"context"
	"fmt"

	"gabarito/internal/models"
)

// RemoteAuditRepository appends history entries to the item store.
type RemoteAuditRepository struct {
	store       ItemStore
	collections Collections
}

func NewRemoteAuditRepository(store ItemStore, collections Collections) *RemoteAuditRepository {
	return &RemoteAuditRepository{store: store, collections: collections}
}

func (r *RemoteAuditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	payload := map[string]string{"action": entry.Action, "subject": entry.Subject}
	if entry.User != "" {
		payload["user"] = entry.User
	}
	if _, err := r.store.CreateItem(ctx, r.collections.History, payload); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// RemoteAssetRepository uploads artwork to the item store's file endpoint.
type RemoteAssetRepository struct {
	store ItemStore
}

func NewRemoteAssetRepository(store ItemStore) *RemoteAssetRepository {
	return &RemoteAssetRepository{store: store}
}

func (r *RemoteAssetRepository) Upload(ctx context.Context, artwork models.Artwork) (string, error) {
	id, err := r.store.UploadFile(ctx, artwork.Data, artwork.Filename, artwork.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload artwork %s: %w", artwork.Filename, err)
	}
	return id, nil
}
