package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockLevel is a read model joining a product with its current balance
type StockLevel struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

// StockTotals summarizes all balances
type StockTotals struct {
	Products   int64 `json:"products"`
	OnHand     int64 `json:"on_hand"`
	OutOfStock int64 `json:"out_of_stock"`
}

// StockReportRepository defines read-only stock report queries
type StockReportRepository interface {
	// StockLevels returns every product with its balance in creation order
	StockLevels(ctx context.Context) ([]StockLevel, error)

	// Totals aggregates balances across all products
	Totals(ctx context.Context) (StockTotals, error)
}
