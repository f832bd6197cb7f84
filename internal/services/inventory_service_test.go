package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gabarito/internal/locking"
	"gabarito/internal/models"
	"gabarito/internal/repositories"
	"gabarito/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedStock(parentQty int, lots ...models.StockLot) *repositories.MockStockRepository {
	repo := repositories.NewMockStockRepository()
	repo.PutUser(models.User{ID: "u-1", Organization: "org-1"})
	repo.PutParent(models.StockParent{ID: "parent-1", Product: "prod-1", Organization: "org-1", Available: parentQty})
	for _, l := range lots {
		l.Parent = "parent-1"
		repo.PutLot(l)
	}
	return repo
}

func quantities(t *testing.T, repo *repositories.MockStockRepository, lotIDs ...string) (int, []int) {
	t.Helper()
	p, ok := repo.Parent("parent-1")
	require.True(t, ok)
	var lots []int
	for _, id := range lotIDs {
		l, ok := repo.Lot(id)
		require.True(t, ok)
		lots = append(lots, l.Quantity)
	}
	return p.Available, lots
}

func TestInventoryService_ConsumesOldestLot(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := seedStock(7,
		models.StockLot{ID: "a-newer", Quantity: 3, CreatedAt: base.Add(time.Hour)},
		models.StockLot{ID: "z-older", Quantity: 4, CreatedAt: base},
	)
	svc := services.NewInventoryService(repo, locking.NewMemoryLocker(), time.Second, nil, nil)

	outcome, err := svc.Decrement(context.Background(), "prod-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecrementApplied, outcome)

	parent, lots := quantities(t, repo, "a-newer", "z-older")
	assert.Equal(t, 6, parent)
	assert.Equal(t, []int{3, 3}, lots)
}

func TestSortLotsFIFO(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lots := []models.StockLot{
		{ID: "c", Sequence: 2, CreatedAt: base},
		{ID: "b", Sequence: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "a", Sequence: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "d", Sequence: 1, CreatedAt: base},
	}
	services.SortLotsFIFO(lots)
	var ids []string
	for _, l := range lots {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestInventoryService_SilentOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("no stock record", func(t *testing.T) {
		repo := seedStock(5, models.StockLot{ID: "l1", Quantity: 5})
		svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
		outcome, err := svc.Decrement(ctx, "prod-unknown", "u-1")
		require.NoError(t, err)
		assert.Equal(t, models.DecrementNoStockRecord, outcome)
	})

	t.Run("zero stock leaves records unchanged", func(t *testing.T) {
		repo := seedStock(0, models.StockLot{ID: "l1", Quantity: 2})
		svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
		for i := 0; i < 3; i++ {
			outcome, err := svc.Decrement(ctx, "prod-1", "u-1")
			require.NoError(t, err)
			assert.Equal(t, models.DecrementOutOfStock, outcome)
		}
		parent, lots := quantities(t, repo, "l1")
		assert.Equal(t, 0, parent)
		assert.Equal(t, []int{2}, lots)
	})

	t.Run("no open lot", func(t *testing.T) {
		repo := seedStock(3, models.StockLot{ID: "l1", Quantity: 0})
		svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
		outcome, err := svc.Decrement(ctx, "prod-1", "u-1")
		require.NoError(t, err)
		assert.Equal(t, models.DecrementNoOpenLot, outcome)
		parent, _ := quantities(t, repo, "l1")
		assert.Equal(t, 3, parent)
	})

	t.Run("unknown user falls back to unscoped lookup", func(t *testing.T) {
		repo := seedStock(2, models.StockLot{ID: "l1", Quantity: 2})
		svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
		outcome, err := svc.Decrement(ctx, "prod-1", "ghost")
		require.NoError(t, err)
		assert.Equal(t, models.DecrementApplied, outcome)
	})

	t.Run("other organization is not touched", func(t *testing.T) {
		repo := seedStock(2, models.StockLot{ID: "l1", Quantity: 2})
		repo.PutUser(models.User{ID: "u-2", Organization: "org-2"})
		svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
		outcome, err := svc.Decrement(ctx, "prod-1", "u-2")
		require.NoError(t, err)
		assert.Equal(t, models.DecrementNoStockRecord, outcome)
	})
}

// rendezvous holds each caller until `parties` callers arrive or the timeout passes.
type rendezvous struct {
	mu      sync.Mutex
	parties int
	waiting int
	release chan struct{}
	timeout time.Duration
}

func (r *rendezvous) wait() {
	r.mu.Lock()
	if r.release == nil {
		r.release = make(chan struct{})
	}
	ch := r.release
	r.waiting++
	if r.waiting == r.parties {
		close(ch)
		r.release, r.waiting = nil, 0
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(r.timeout):
		r.mu.Lock()
		if r.release == ch {
			r.waiting--
		}
		r.mu.Unlock()
	}
}

func raceTwoDecrements(t *testing.T, locker locking.Locker) (*repositories.MockStockRepository, []models.DecrementOutcome) {
	t.Helper()
	repo := seedStock(1, models.StockLot{ID: "l1", Quantity: 1})
	barrier := &rendezvous{parties: 2, timeout: 200 * time.Millisecond}
	repo.AfterRead = barrier.wait

	svc := services.NewInventoryService(repo, locker, 5*time.Second, nil, nil)
	outcomes := make([]models.DecrementOutcome, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := svc.Decrement(context.Background(), "prod-1", "u-1")
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()
	return repo, outcomes
}

func TestInventoryService_UnguardedDecrementLosesUpdate(t *testing.T) {
	repo, outcomes := raceTwoDecrements(t, locking.NoopLocker{})

	// Both callers read quantity 1 and both write 0: two proofs, one unit consumed.
	assert.Equal(t, []models.DecrementOutcome{models.DecrementApplied, models.DecrementApplied}, outcomes)
	parent, lots := quantities(t, repo, "l1")
	assert.Equal(t, 0, parent)
	assert.Equal(t, []int{0}, lots)
}

func TestInventoryService_LockedDecrementSerializes(t *testing.T) {
	repo, outcomes := raceTwoDecrements(t, locking.NewMemoryLocker())

	assert.ElementsMatch(t, []models.DecrementOutcome{models.DecrementApplied, models.DecrementOutOfStock}, outcomes)
	parent, lots := quantities(t, repo, "l1")
	assert.Equal(t, 0, parent)
	assert.Equal(t, []int{0}, lots)
}

type MockAtomicStockRepository struct {
	mock.Mock
}

func (m *MockAtomicStockRepository) OrganizationOf(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockAtomicStockRepository) FindParents(ctx context.Context, productID, organization string) ([]models.StockParent, error) {
	args := m.Called(ctx, productID, organization)
	return args.Get(0).([]models.StockParent), args.Error(1)
}

func (m *MockAtomicStockRepository) FindOpenLots(ctx context.Context, parentID string) ([]models.StockLot, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]models.StockLot), args.Error(1)
}

func (m *MockAtomicStockRepository) DecrementLot(ctx context.Context, lot models.StockLot) error {
	return m.Called(ctx, lot).Error(0)
}

func (m *MockAtomicStockRepository) DecrementParent(ctx context.Context, parent models.StockParent) error {
	return m.Called(ctx, parent).Error(0)
}

func (m *MockAtomicStockRepository) DecrementAtomically(ctx context.Context, parentID, lotID string) error {
	return m.Called(ctx, parentID, lotID).Error(0)
}

func TestInventoryService_UsesAtomicDecrement(t *testing.T) {
	repo := new(MockAtomicStockRepository)
	repo.On("OrganizationOf", mock.Anything, "u-1").Return("org-1", nil)
	repo.On("FindParents", mock.Anything, "prod-1", "org-1").Return([]models.StockParent{{ID: "p", Available: 1}}, nil)
	repo.On("FindOpenLots", mock.Anything, "p").Return([]models.StockLot{{ID: "l2", Sequence: 2}, {ID: "l1", Sequence: 1}}, nil)
	repo.On("DecrementAtomically", mock.Anything, "p", "l1").Return(nil).Once()
	repo.On("DecrementAtomically", mock.Anything, "p", "l1").Return(repositories.ErrStockConflict).Once()

	svc := services.NewInventoryService(repo, nil, time.Second, nil, nil)
	outcome, err := svc.Decrement(context.Background(), "prod-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecrementApplied, outcome)

	outcome, err = svc.Decrement(context.Background(), "prod-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.DecrementOutOfStock, outcome)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "DecrementLot", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DecrementParent", mock.Anything, mock.Anything)
}

type failingParentRepo struct {
	*repositories.MockStockRepository
}

func (failingParentRepo) DecrementParent(ctx context.Context, parent models.StockParent) error {
	return errors.New("store timeout")
}

func TestInventoryService_PartialDecrement(t *testing.T) {
	repo := seedStock(2, models.StockLot{ID: "l1", Quantity: 2})
	svc := services.NewInventoryService(failingParentRepo{repo}, nil, time.Second, nil, nil)

	outcome, err := svc.Decrement(context.Background(), "prod-1", "u-1")
	assert.ErrorIs(t, err, services.ErrPartialDecrement)
	assert.Equal(t, models.DecrementApplied, outcome)

	parent, lots := quantities(t, repo, "l1")
	assert.Equal(t, 2, parent)
	assert.Equal(t, []int{1}, lots)

	// The best-effort entry point swallows the same failure.
	assert.NotPanics(t, func() {
		svc.DecrementOneUnit(context.Background(), "prod-1", "u-1")
	})
}

func TestInventoryService_LockTimeoutFails(t *testing.T) {
	repo := seedStock(1, models.StockLot{ID: "l1", Quantity: 1})
	locker := locking.NewMemoryLocker()
	unlock, err := locker.Lock(context.Background(), services.StockLockKey("prod-1"))
	require.NoError(t, err)
	defer unlock()

	svc := services.NewInventoryService(repo, locker, 30*time.Millisecond, nil, nil)
	outcome, err := svc.Decrement(context.Background(), "prod-1", "u-1")
	assert.ErrorIs(t, err, locking.ErrNotAcquired)
	assert.Equal(t, models.DecrementFailed, outcome)
}
