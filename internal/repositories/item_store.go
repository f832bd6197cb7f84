package repositories

import (
	"context"

	"gabarito/pkg/itemstore"
)

// ItemStore is the generic remote store the remote repositories are built on.
type ItemStore interface {
	ListItems(ctx context.Context, collection string, q itemstore.Query) ([]itemstore.Item, error)
	GetItem(ctx context.Context, collection, id string) (itemstore.Item, error)
	CreateItem(ctx context.Context, collection string, payload any) (itemstore.Item, error)
	UpdateItem(ctx context.Context, collection, id string, payload any) (itemstore.Item, error)
	UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// Collections names the store collections and the lot ordering key.
type Collections struct {
	Products    string
	StockParent string
	StockLot    string
	History     string
	Users       string
	// LotSort orders open lots oldest first, e.g. ["sequence", "date_created"].
	LotSort []string
}

func DefaultCollections() Collections {
	return Collections{
		Products:    "products",
		StockParent: "stock_parent",
		StockLot:    "stock_lot",
		History:     "history",
		Users:       "users",
		LotSort:     []string{"date_created"},
	}
}
