package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/report"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Page size defaults for history queries
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// ReportService answers read-only questions about the registry and the ledger
type ReportService struct {
	productRepo catalog.ProductRepository
	ledger      inventory.LedgerStore
	reportRepo  report.StockReportRepository
	pageSize    int
	maxPageSize int
	logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	productRepo catalog.ProductRepository,
	ledger inventory.LedgerStore,
	reportRepo report.StockReportRepository,
	log *zap.Logger,
) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{
		productRepo: productRepo,
		ledger:      ledger,
		reportRepo:  reportRepo,
		pageSize:    DefaultPageSize,
		maxPageSize: MaxPageSize,
		logger:      log.Named("report_service"),
	}
}

// SetPageSizes overrides the default and maximum history page sizes
func (s *ReportService) SetPageSizes(defaultSize, maxSize int) {
	if defaultSize > 0 {
		s.pageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	if s.pageSize > s.maxPageSize {
		s.pageSize = s.maxPageSize
	}
}

// Snapshot returns every product with its current balance in creation order
func (s *ReportService) Snapshot(ctx context.Context) ([]SnapshotEntry, error) {
	levels, err := s.reportRepo.StockLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}
	entries := make([]SnapshotEntry, len(levels))
	for i, l := range levels {
		entries[i] = SnapshotEntry{
			ProductID:   l.ProductID,
			Name:        l.Name,
			Description: l.Description,
			Balance:     l.Quantity,
		}
	}
	return entries, nil
}

// History returns ledger entries of one kind, oldest first, joined with product names
func (s *ReportService) History(ctx context.Context, kind inventory.EventKind, filter HistoryFilter) (*HistoryPage, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("INVALID_EVENT_KIND", "Event kind must be INBOUND or OUTBOUND")
	}
	if filter.StartDate != nil && filter.EndDate != nil && !filter.EndDate.After(*filter.StartDate) {
		return nil, shared.NewValidationError("INVALID_DATE_RANGE", "end_date must be after start_date")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	events, total, err := s.ledger.ReadEvents(ctx, inventory.EventFilter{
		Filter: shared.Filter{
			Page:      page,
			PageSize:  pageSize,
			StartTime: filter.StartDate,
			EndTime:   filter.EndDate,
		},
		ProductID: filter.ProductID,
		Kind:      &kind,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stock events: %w", err)
	}

	names, err := s.productNames(ctx, events)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(events))
	for i := range events {
		name, ok := names[events[i].ProductID]
		if !ok {
			logger.For(ctx, s.logger).Warn("Stock event references unknown product",
				zap.String("event_id", events[i].ID.String()),
				zap.String("product_id", events[i].ProductID.String()),
			)
			name = UnknownProductName
		}
		entries[i] = HistoryEntry{
			StockEventResponse: appinventory.ToStockEventResponse(&events[i]),
			ProductName:        name,
		}
	}

	return &HistoryPage{Entries: entries, Total: total, Page: page, PageSize: pageSize}, nil
}

// VerifyBalance recomputes a product balance from its events and compares it with the stored balance
func (s *ReportService) VerifyBalance(ctx context.Context, productID uuid.UUID) (*BalanceAudit, error) {
	totals, err := s.ledger.ReadLedgerTotals(ctx, productID)
	if err != nil {
		return nil, err
	}
	materialized := totals.Balance

	audit := &BalanceAudit{
		ProductID:     productID,
		Materialized:  materialized,
		TotalInbound:  totals.Inbound,
		TotalOutbound: totals.Outbound,
		Recomputed:    totals.Inbound - totals.Outbound,
	}
	audit.Consistent = audit.Recomputed == materialized
	if !audit.Consistent {
		logger.For(ctx, s.logger).Error("Stock balance does not match ledger",
			zap.String("product_id", productID.String()),
			zap.Int64("materialized", materialized),
			zap.Int64("recomputed", audit.Recomputed),
		)
	}
	return audit, nil
}

// StockTotals returns the units on hand and the number of products with zero stock
func (s *ReportService) StockTotals(ctx context.Context) (int64, int64, error) {
	totals, err := s.reportRepo.Totals(ctx)
	if err != nil {
		return 0, 0, err
	}
	return totals.OnHand, totals.OutOfStock, nil
}

func (s *ReportService) productNames(ctx context.Context, events []inventory.StockEvent) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	if len(events) == 0 {
		return names, nil
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		if !seen[e.ProductID] {
			seen[e.ProductID] = true
			ids = append(ids, e.ProductID)
		}
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product names: %w", err)
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
