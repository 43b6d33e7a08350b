package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// EventFilter narrows a ledger read. Nil fields are not applied.
// Time bounds apply to OccurredAt: StartTime inclusive, EndTime exclusive.
type EventFilter struct {
	shared.Filter
	ProductID *uuid.UUID
	Kind      *EventKind
}

// LedgerTotals is a stored balance together with the event sums it must equal
type LedgerTotals struct {
	Balance  int64
	Inbound  int64
	Outbound int64
}

// LedgerStore is the durable home of stock events and balances.
// The ledger is append-only: there is no way to update or delete an event.
type LedgerStore interface {
	// CreateBalance inserts the zero balance row for a new product
	CreateBalance(ctx context.Context, balance *StockBalance) error

	// AppendEvent locks the product balance, applies the event and persists both.
	// The event is returned with OccurredAt and BalanceAfter set.
	// Returns shared.ErrNotFound if the product has no balance row and
	// an insufficient-stock error (state unchanged) if an outbound would go negative.
	AppendEvent(ctx context.Context, event *StockEvent) (*StockEvent, error)

	// ReadBalance returns the current quantity of a product
	ReadBalance(ctx context.Context, productID uuid.UUID) (int64, error)

	// ReadBalances returns current quantities keyed by product id; missing ids are absent
	ReadBalances(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	// ReadEvents returns events matching the filter ordered by OccurredAt then ID,
	// together with the total number of matching events
	ReadEvents(ctx context.Context, filter EventFilter) ([]StockEvent, int64, error)

	// SumByKind recomputes inbound and outbound totals for a product from its events
	SumByKind(ctx context.Context, productID uuid.UUID) (inbound int64, outbound int64, err error)

	// ReadLedgerTotals returns the balance and the event sums of a product from a single read,
	// so a commit cannot land between them. Returns ErrUnknownProduct if the product has no balance row.
	ReadLedgerTotals(ctx context.Context, productID uuid.UUID) (*LedgerTotals, error)
}

// ErrUnknownProduct is returned when a stock event references a product that does not exist
var ErrUnknownProduct = shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
