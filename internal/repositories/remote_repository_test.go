package repositories

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gabarito/internal/models"
	"gabarito/pkg/itemstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) ListItems(ctx context.Context, collection string, q itemstore.Query) ([]itemstore.Item, error) {
	args := m.Called(ctx, collection, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itemstore.Item), args.Error(1)
}

func (m *MockItemStore) GetItem(ctx context.Context, collection, id string) (itemstore.Item, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(itemstore.Item), args.Error(1)
}

func (m *MockItemStore) CreateItem(ctx context.Context, collection string, payload any) (itemstore.Item, error) {
	args := m.Called(ctx, collection, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(itemstore.Item), args.Error(1)
}

func (m *MockItemStore) UpdateItem(ctx context.Context, collection, id string, payload any) (itemstore.Item, error) {
	args := m.Called(ctx, collection, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(itemstore.Item), args.Error(1)
}

func (m *MockItemStore) UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	args := m.Called(ctx, data, filename, contentType)
	return args.String(0), args.Error(1)
}

func TestRemoteStockRepository(t *testing.T) {
	store := new(MockItemStore)
	cols := DefaultCollections()
	cols.LotSort = []string{"sequence", "date_created"}
	repo := NewRemoteStockRepository(store, cols)
	ctx := context.Background()

	store.On("GetItem", mock.Anything, "users", "u-1").Return(itemstore.Item{"id": "u-1", "organization": "org-1"}, nil)
	store.On("ListItems", mock.Anything, "stock_parent", itemstore.Query{
		Filter: []itemstore.Predicate{itemstore.Eq("product", "prod-1"), itemstore.Eq("organization", "org-1")},
		Limit:  1,
	}).Return([]itemstore.Item{{"id": float64(3), "product": "prod-1", "available_quantity": "4"}}, nil)
	store.On("ListItems", mock.Anything, "stock_lot", itemstore.Query{
		Filter: []itemstore.Predicate{itemstore.Eq("parent", "3"), itemstore.Gt("quantity", "0")},
		Sort:   []string{"sequence", "date_created"},
		Limit:  -1,
	}).Return([]itemstore.Item{{"id": "lot-a", "quantity": float64(2), "date_created": "2024-05-01T10:00:00Z"}}, nil)
	store.On("UpdateItem", mock.Anything, "stock_lot", "lot-a", map[string]int{"quantity": 1}).Return(itemstore.Item{}, nil)
	store.On("UpdateItem", mock.Anything, "stock_parent", "3", map[string]int{"available_quantity": 3}).Return(itemstore.Item{}, nil)

	org, err := repo.OrganizationOf(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org)

	parents, err := repo.FindParents(ctx, "prod-1", org)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "3", parents[0].ID)
	assert.Equal(t, 4, parents[0].Available)

	lots, err := repo.FindOpenLots(ctx, parents[0].ID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 2, lots[0].Quantity)
	assert.Equal(t, 2024, lots[0].CreatedAt.Year())

	require.NoError(t, repo.DecrementLot(ctx, lots[0]))
	require.NoError(t, repo.DecrementParent(ctx, parents[0]))
	store.AssertExpectations(t)

	assert.ErrorIs(t, repo.DecrementLot(ctx, models.StockLot{ID: "x", Quantity: 0}), ErrStockConflict)
	assert.ErrorIs(t, repo.DecrementParent(ctx, models.StockParent{ID: "x", Available: 0}), ErrStockConflict)
}

func TestRemoteStockRepository_UserLookupFailure(t *testing.T) {
	store := new(MockItemStore)
	store.On("GetItem", mock.Anything, "users", "ghost").Return(nil, itemstore.ErrNotFound)
	_, err := NewRemoteStockRepository(store, DefaultCollections()).OrganizationOf(context.Background(), "ghost")
	assert.ErrorIs(t, err, itemstore.ErrNotFound)
}

func TestRemoteAuditAndAssetRepositories(t *testing.T) {
	store := new(MockItemStore)
	store.On("CreateItem", mock.Anything, "history", map[string]string{
		"action": models.ActionProofGenerated, "subject": "Caneca", "user": "u-1",
	}).Return(itemstore.Item{"id": "h-1"}, nil).Once()
	store.On("UploadFile", mock.Anything, []byte("raw"), "a.png", "image/png").Return("", errors.New("itemstore: HTTP 500: boom")).Once()

	require.NoError(t, NewRemoteAuditRepository(store, DefaultCollections()).Append(context.Background(),
		models.AuditEntry{Action: models.ActionProofGenerated, Subject: "Caneca", User: "u-1"}))

	_, err := NewRemoteAssetRepository(store).Upload(context.Background(), models.Artwork{Data: []byte("raw"), Filename: "a.png", ContentType: "image/png"})
	assert.ErrorContains(t, err, "boom")
	store.AssertExpectations(t)
}

func TestRemoteProductRepository_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "published", r.URL.Query().Get("filter[status][_eq]"))
			assert.Equal(t, "-1", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"data":[{"id":"p1","status":"published","name":"Caneca","sku":"C1","width":"20","height":9.5,"template_kind":"rectangular"}]}`)
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"template_kind":"rectangular"`)
			_, _ = io.WriteString(w, `{"data":{"id":"p2"}}`)
		}
	}))
	defer srv.Close()

	client, err := itemstore.NewClient(itemstore.Conf{BaseURL: srv.URL, Token: "t", Timeout: time.Second})
	require.NoError(t, err)
	repo := NewRemoteProductRepository(client, DefaultCollections())

	products, err := repo.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 20.0, products[0].Width)
	assert.Equal(t, 9.5, products[0].Height)

	p := &models.Product{Status: models.ProductStatusPublished, Name: "Chaveiro", Width: 4, Height: 3, TemplateKind: models.TemplateKindRectangle}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, "p2", p.ID)
}

func TestMemoryRepositories(t *testing.T) {
	ctx := context.Background()
	products := NewMockProductRepository()
	require.NoError(t, products.Create(ctx, &models.Product{Status: models.ProductStatusPublished, Name: "A"}))
	require.NoError(t, products.Create(ctx, &models.Product{Status: "draft", Name: "B"}))
	list, err := products.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)

	audit := NewMockAuditRepository()
	id, err := audit.Upload(ctx, models.Artwork{Filename: "x.png"})
	require.NoError(t, err)
	got, ok := audit.Asset(id)
	assert.True(t, ok)
	assert.Equal(t, "x.png", got.Filename)
}
