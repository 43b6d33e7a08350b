package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
)

// RecordInboundRequest is a receipt of stock from a supplier
type RecordInboundRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required"`
	Supplier  string    `json:"supplier" binding:"max=200"`
}

// RecordOutboundRequest is a shipment of stock to a customer
type RecordOutboundRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required"`
	Customer  string    `json:"customer" binding:"max=200"`
}

// StockEventResponse is a committed ledger entry
type StockEventResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	Kind         string    `json:"kind"`
	Quantity     int64     `json:"quantity"`
	Supplier     string    `json:"supplier,omitempty"`
	Customer     string    `json:"customer,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	Timestamp    time.Time `json:"timestamp"`
}

// BalanceResponse is the current balance of one product
type BalanceResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	CurrentStock int64     `json:"current_stock"`
}

// ToStockEventResponse converts a ledger entry to its response shape
func ToStockEventResponse(e *inventory.StockEvent) StockEventResponse {
	resp := StockEventResponse{
		ID:           e.ID,
		ProductID:    e.ProductID,
		Kind:         e.Kind.String(),
		Quantity:     e.Quantity,
		BalanceAfter: e.BalanceAfter,
		Timestamp:    e.OccurredAt,
	}
	if e.Kind == inventory.EventKindInbound {
		resp.Supplier = e.Counterpart
	} else {
		resp.Customer = e.Counterpart
	}
	return resp
}
