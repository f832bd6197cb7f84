package repositories

import (
	"context"
	"sync"
	"time"

	"gabarito/internal/models"

	"github.com/google/uuid"
)

// MockAuditRepository is an in-memory implementation of AuditRepository and AssetRepository.
type MockAuditRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	assets  map[string]models.Artwork
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{assets: make(map[string]models.Artwork)}
}

func (r *MockAuditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New().String()
	entry.Timestamp = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of the history in append order.
func (r *MockAuditRepository) Entries() []models.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.AuditEntry(nil), r.entries...)
}

func (r *MockAuditRepository) Upload(ctx context.Context, artwork models.Artwork) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New().String()
	r.assets[id] = artwork
	return id, nil
}

// Asset returns an uploaded artwork by id.
func (r *MockAuditRepository) Asset(id string) (models.Artwork, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	return a, ok
}
