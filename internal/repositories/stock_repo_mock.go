package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gabarito/internal/models"
)

// MockStockRepository is an in-memory implementation of StockRepository.
// Like the remote store, it writes observed-1 on decrement, so unserialized
// concurrent callers can lose updates.
type MockStockRepository struct {
	mu      sync.RWMutex
	users   map[string]models.User
	parents map[string]models.StockParent
	lots    map[string]models.StockLot

	// AfterRead, when set, runs after every parent or lot query.
	AfterRead func()
}

// NewMockStockRepository creates a new instance of MockStockRepository.
func NewMockStockRepository() *MockStockRepository {
	return &MockStockRepository{
		users:   make(map[string]models.User),
		parents: make(map[string]models.StockParent),
		lots:    make(map[string]models.StockLot),
	}
}

func (r *MockStockRepository) PutUser(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MockStockRepository) PutParent(p models.StockParent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[p.ID] = p
}

func (r *MockStockRepository) PutLot(l models.StockLot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots[l.ID] = l
}

// Parent returns the stored parent.
func (r *MockStockRepository) Parent(id string) (models.StockParent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parents[id]
	return p, ok
}

// Lot returns the stored lot.
func (r *MockStockRepository) Lot(id string) (models.StockLot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lots[id]
	return l, ok
}

func (r *MockStockRepository) OrganizationOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return "", fmt.Errorf("user with ID %s not found", userID)
	}
	return u.Organization, nil
}

func (r *MockStockRepository) FindParents(ctx context.Context, productID, organization string) ([]models.StockParent, error) {
	r.mu.RLock()
	var parents []models.StockParent
	for _, p := range r.parents {
		if p.Product == productID && (organization == "" || p.Organization == organization) {
			parents = append(parents, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(parents, func(i, j int) bool { return parents[i].ID < parents[j].ID })
	r.afterRead()
	return parents, nil
}

func (r *MockStockRepository) FindOpenLots(ctx context.Context, parentID string) ([]models.StockLot, error) {
	r.mu.RLock()
	var lots []models.StockLot
	for _, l := range r.lots {
		if l.Parent == parentID && l.Quantity > 0 {
			lots = append(lots, l)
		}
	}
	r.mu.RUnlock()

	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	r.afterRead()
	return lots, nil
}

func (r *MockStockRepository) DecrementLot(ctx context.Context, lot models.StockLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lots[lot.ID]
	if !ok {
		return fmt.Errorf("lot with ID %s not found", lot.ID)
	}
	stored.Quantity = lot.Quantity - 1
	r.lots[lot.ID] = stored
	return nil
}

func (r *MockStockRepository) DecrementParent(ctx context.Context, parent models.StockParent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.parents[parent.ID]
	if !ok {
		return fmt.Errorf("stock with ID %s not found", parent.ID)
	}
	stored.Available = parent.Available - 1
	r.parents[parent.ID] = stored
	return nil
}

func (r *MockStockRepository) afterRead() {
	if r.AfterRead != nil {
		r.AfterRead()
	}
}
