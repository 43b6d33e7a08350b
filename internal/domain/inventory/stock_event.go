package inventory

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// EventKind is the direction of a stock movement
type EventKind string

const (
	// EventKindInbound is stock received from a supplier
	EventKindInbound EventKind = "INBOUND"
	// EventKindOutbound is stock shipped to a customer
	EventKindOutbound EventKind = "OUTBOUND"
)

const maxCounterpartLength = 200

// String returns the string representation of EventKind
func (k EventKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is INBOUND or OUTBOUND
func (k EventKind) IsValid() bool {
	return k == EventKindInbound || k == EventKindOutbound
}

// Sign returns +1 for inbound and -1 for outbound
func (k EventKind) Sign() int64 {
	if k == EventKindOutbound {
		return -1
	}
	return 1
}

// StockEvent is an immutable ledger entry. Corrections are made with new events, never edits.
// OccurredAt and BalanceAfter are assigned by the ledger store when the event commits.
type StockEvent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_events_product"`
	Kind         EventKind `gorm:"type:varchar(10);not null;index:idx_stock_events_kind_time,priority:1"`
	Quantity     int64     `gorm:"not null;check:chk_stock_events_quantity,quantity > 0"`
	Counterpart  string    `gorm:"type:varchar(200);not null;default:''"` // supplier for inbound, customer for outbound
	BalanceAfter int64     `gorm:"not null"`
	OccurredAt   time.Time `gorm:"not null;index:idx_stock_events_kind_time,priority:2"`
}

// TableName returns the table name for GORM
func (StockEvent) TableName() string {
	return "stock_events"
}

// NewStockEvent validates and builds an uncommitted stock event
func NewStockEvent(productID uuid.UUID, kind EventKind, quantity int64, counterpart string) (*StockEvent, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("INVALID_EVENT_KIND", "Event kind must be INBOUND or OUTBOUND")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be a positive integer")
	}
	if utf8.RuneCountInString(counterpart) > maxCounterpartLength {
		return nil, shared.NewValidationError("INVALID_COUNTERPART", "Supplier or customer cannot exceed 200 characters")
	}

	return &StockEvent{
		ID:          shared.NewID(),
		ProductID:   productID,
		Kind:        kind,
		Quantity:    quantity,
		Counterpart: counterpart,
	}, nil
}

// Delta returns the signed change this event applies to the balance
func (e *StockEvent) Delta() int64 {
	return e.Kind.Sign() * e.Quantity
}
