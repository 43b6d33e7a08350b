package report

import (
	"time"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
)

// UnknownProductName is shown for ledger entries whose product cannot be resolved
const UnknownProductName = "(unknown product)"

// HistoryFilter narrows a history query. StartDate is inclusive, EndDate exclusive.
type HistoryFilter struct {
	ProductID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// HistoryEntry is a ledger entry joined with its product name
type HistoryEntry struct {
	appinventory.StockEventResponse
	ProductName string `json:"product_name"`
}

// HistoryPage is one page of history entries
type HistoryPage struct {
	Entries  []HistoryEntry
	Total    int64
	Page     int
	PageSize int
}

// SnapshotEntry is one product in the stock snapshot
type SnapshotEntry struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Balance     int64     `json:"balance"`
}

// BalanceAudit compares the materialized balance with one recomputed from the ledger
type BalanceAudit struct {
	ProductID     uuid.UUID `json:"product_id"`
	Materialized  int64     `json:"materialized"`
	TotalInbound  int64     `json:"total_inbound"`
	TotalOutbound int64     `json:"total_outbound"`
	Recomputed    int64     `json:"recomputed"`
	Consistent    bool      `json:"consistent"`
}
