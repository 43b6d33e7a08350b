package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// StockBalance is the materialized current quantity of one product.
// It always equals the sum of inbound minus the sum of outbound events for the product.
type StockBalance struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity  int64     `gorm:"not null;default:0;check:chk_stock_balances_quantity,quantity >= 0"`
	Version   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockBalance) TableName() string {
	return "stock_balances"
}

// NewStockBalance creates the zero balance row for a newly registered product
func NewStockBalance(productID uuid.UUID) *StockBalance {
	return &StockBalance{
		ProductID: productID,
		UpdatedAt: time.Now().UTC(),
	}
}

// Apply applies the event to the balance, stamping the event with the resulting balance.
// An outbound event that would drive the balance below zero leaves both untouched.
func (b *StockBalance) Apply(event *StockEvent, at time.Time) error {
	if event.ProductID != b.ProductID {
		return fmt.Errorf("stock event for product %s applied to balance of %s", event.ProductID, b.ProductID)
	}

	switch event.Kind {
	case EventKindOutbound:
		if b.Quantity < event.Quantity {
			return NewInsufficientStockError(b.Quantity, event.Quantity)
		}
	case EventKindInbound:
		if event.Quantity > math.MaxInt64-b.Quantity {
			return shared.NewValidationError("QUANTITY_OVERFLOW", "Quantity would overflow the product balance")
		}
	default:
		return shared.NewValidationError("INVALID_EVENT_KIND", "Event kind must be INBOUND or OUTBOUND")
	}

	b.Quantity += event.Delta()
	b.Version++
	b.UpdatedAt = at
	event.BalanceAfter = b.Quantity
	event.OccurredAt = at
	return nil
}

// NewInsufficientStockError describes a rejected outbound request
func NewInsufficientStockError(available, requested int64) *shared.DomainError {
	return shared.NewDomainError(
		shared.KindInsufficientStock,
		"INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock: available %d, requested %d", available, requested),
	)
}
