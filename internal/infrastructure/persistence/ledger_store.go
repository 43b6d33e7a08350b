package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerStore implements LedgerStore using GORM.
// AppendEvent must run inside a transaction (see GormTransactionScope).
type GormLedgerStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormLedgerStore creates a new GormLedgerStore
func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{
		db: db,
		now: func() time.Time {
			// timestamptz keeps microseconds; truncate so the returned event matches the stored one
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// CreateBalance inserts the zero balance row for a new product
func (r *GormLedgerStore) CreateBalance(ctx context.Context, balance *inventory.StockBalance) error {
	if err := r.db.WithContext(ctx).Create(balance).Error; err != nil {
		if isForeignKeyViolation(err) {
			return inventory.ErrUnknownProduct
		}
		return fmt.Errorf("failed to create stock balance: %w", err)
	}
	return nil
}

// AppendEvent locks the balance row, applies the event, inserts it and writes the new balance.
// The balance update is guarded by the version read under the lock; a mismatch returns
// ErrConcurrentUpdate, which the transaction scope retries.
func (r *GormLedgerStore) AppendEvent(ctx context.Context, event *inventory.StockEvent) (*inventory.StockEvent, error) {
	var balance inventory.StockBalance
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("product_id = ?", event.ProductID).Take(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrUnknownProduct
		}
		return nil, fmt.Errorf("failed to lock stock balance: %w", err)
	}

	readVersion := balance.Version
	committed := *event
	if err := balance.Apply(&committed, r.now()); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(&committed).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, inventory.ErrUnknownProduct
		}
		return nil, fmt.Errorf("failed to append stock event: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&inventory.StockBalance{}).
		Where("product_id = ? AND version = ?", balance.ProductID, readVersion).
		Updates(map[string]any{
			"quantity":   balance.Quantity,
			"version":    balance.Version,
			"updated_at": balance.UpdatedAt,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update stock balance: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return nil, ErrConcurrentUpdate
	}

	return &committed, nil
}

// ReadBalance returns the current quantity of a product
func (r *GormLedgerStore) ReadBalance(ctx context.Context, productID uuid.UUID) (int64, error) {
	var balance inventory.StockBalance
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, inventory.ErrUnknownProduct
		}
		return 0, err
	}
	return balance.Quantity, nil
}

// ReadBalances returns current quantities keyed by product id
func (r *GormLedgerStore) ReadBalances(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	var balances []inventory.StockBalance
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&balances).Error; err != nil {
		return nil, err
	}
	for _, b := range balances {
		result[b.ProductID] = b.Quantity
	}
	return result, nil
}

// ReadEvents returns events matching the filter, oldest first, and the total match count
func (r *GormLedgerStore) ReadEvents(ctx context.Context, filter inventory.EventFilter) ([]inventory.StockEvent, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	events := []inventory.StockEvent{}
	if total == 0 {
		return events, 0, nil
	}

	query := r.filtered(ctx, filter).Order("occurred_at ASC, id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// filtered builds a fresh query each call; GORM statements must not be reused after Count.
func (r *GormLedgerStore) filtered(ctx context.Context, filter inventory.EventFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&inventory.StockEvent{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.StartTime != nil {
		query = query.Where("occurred_at >= ?", filter.StartTime.UTC())
	}
	if filter.EndTime != nil {
		query = query.Where("occurred_at < ?", filter.EndTime.UTC())
	}
	return query
}

// SumByKind recomputes inbound and outbound totals for a product from its events
func (r *GormLedgerStore) SumByKind(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	var rows []struct {
		Kind  inventory.EventKind
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&inventory.StockEvent{}).
		Select("kind, CAST(COALESCE(SUM(quantity), 0) AS BIGINT) AS total").
		Where("product_id = ?", productID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var inbound, outbound int64
	for _, row := range rows {
		switch row.Kind {
		case inventory.EventKindInbound:
			inbound = row.Total
		case inventory.EventKindOutbound:
			outbound = row.Total
		}
	}
	return inbound, outbound, nil
}

// ledgerTotalsQuery reads the balance row and its event sums in one statement
const ledgerTotalsQuery = `SELECT b.quantity AS balance,
	CAST(COALESCE(SUM(CASE WHEN e.kind = ? THEN e.quantity END), 0) AS BIGINT) AS inbound,
	CAST(COALESCE(SUM(CASE WHEN e.kind = ? THEN e.quantity END), 0) AS BIGINT) AS outbound
FROM stock_balances AS b
LEFT JOIN stock_events AS e ON e.product_id = b.product_id
WHERE b.product_id = ?
GROUP BY b.quantity`

// ReadLedgerTotals returns the balance and event sums of a product from one statement snapshot
func (r *GormLedgerStore) ReadLedgerTotals(ctx context.Context, productID uuid.UUID) (*inventory.LedgerTotals, error) {
	var rows []inventory.LedgerTotals
	err := r.db.WithContext(ctx).
		Raw(ledgerTotalsQuery, inventory.EventKindInbound, inventory.EventKindOutbound, productID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, inventory.ErrUnknownProduct
	}
	return &rows[0], nil
}

// Ensure GormLedgerStore implements LedgerStore
var _ inventory.LedgerStore = (*GormLedgerStore)(nil)
