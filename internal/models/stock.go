package models

import "time"

// StockParent tracks the total available quantity of a product for one organization.
type StockParent struct {
	ID           string    `json:"id" mapstructure:"id" gorm:"primaryKey;type:varchar(36)"`
	Product      string    `json:"product" mapstructure:"product" gorm:"type:varchar(36);index"`
	Organization string    `json:"organization" mapstructure:"organization" gorm:"type:varchar(36);index"`
	Available    int       `json:"available_quantity" mapstructure:"available_quantity" gorm:"column:available_quantity"`
	CreatedAt    time.Time `json:"date_created" mapstructure:"-"`
}

// StockLot is one batch of a StockParent. Lots are consumed oldest first.
type StockLot struct {
	ID        string    `json:"id" mapstructure:"id" gorm:"primaryKey;type:varchar(36)"`
	Parent    string    `json:"parent" mapstructure:"parent" gorm:"type:varchar(36);index"`
	Sequence  int       `json:"sequence" mapstructure:"sequence"`
	Quantity  int       `json:"quantity" mapstructure:"quantity"`
	CreatedAt time.Time `json:"date_created" mapstructure:"date_created"`
}

// DecrementOutcome is the result of one attempt to consume a unit of stock.
type DecrementOutcome int

const (
	DecrementApplied DecrementOutcome = iota
	DecrementNoStockRecord
	DecrementOutOfStock
	DecrementNoOpenLot
	// DecrementFailed means the store could not be read or written; the error says why.
	DecrementFailed
)

func (o DecrementOutcome) String() string {
	switch o {
	case DecrementApplied:
		return "applied"
	case DecrementNoStockRecord:
		return "no_stock_record"
	case DecrementOutOfStock:
		return "out_of_stock"
	case DecrementNoOpenLot:
		return "no_open_lot"
	case DecrementFailed:
		return "failed"
	}
	return "unknown"
}
