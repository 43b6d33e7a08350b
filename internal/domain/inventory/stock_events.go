package inventory

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStock = "Stock"

// Event type constants
const (
	EventTypeStockReceived = "StockReceived"
	EventTypeStockShipped  = "StockShipped"
)

// StockChangedEvent is the payload shared by receipts and shipments
type StockChangedEvent struct {
	shared.BaseDomainEvent
	LedgerEventID uuid.UUID `json:"ledger_event_id"`
	ProductID     uuid.UUID `json:"product_id"`
	Kind          EventKind `json:"kind"`
	Quantity      int64     `json:"quantity"`
	Counterpart   string    `json:"counterpart,omitempty"`
	BalanceAfter  int64     `json:"balance_after"`
}

// NewStockChangedEvent builds the domain event for a committed ledger entry
func NewStockChangedEvent(e *StockEvent) *StockChangedEvent {
	eventType := EventTypeStockReceived
	if e.Kind == EventKindOutbound {
		eventType = EventTypeStockShipped
	}
	base := shared.NewBaseDomainEvent(eventType, AggregateTypeStock, e.ProductID)
	base.Timestamp = e.OccurredAt
	return &StockChangedEvent{
		BaseDomainEvent: base,
		LedgerEventID:   e.ID,
		ProductID:       e.ProductID,
		Kind:            e.Kind,
		Quantity:        e.Quantity,
		Counterpart:     e.Counterpart,
		BalanceAfter:    e.BalanceAfter,
	}
}
