package persistence

import (
	"context"

	"github.com/stockledger/backend/internal/domain/report"
	"gorm.io/gorm"
)

// GormStockReportRepository implements StockReportRepository using GORM
type GormStockReportRepository struct {
	db *gorm.DB
}

// NewGormStockReportRepository creates a new GormStockReportRepository
func NewGormStockReportRepository(db *gorm.DB) *GormStockReportRepository {
	return &GormStockReportRepository{db: db}
}

// StockLevels returns every product with its balance in creation order
func (r *GormStockReportRepository) StockLevels(ctx context.Context) ([]report.StockLevel, error) {
	levels := []report.StockLevel{}
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id AS product_id, p.name AS name, p.description AS description, " +
			"COALESCE(b.quantity, 0) AS quantity, p.created_at AS created_at").
		Joins("LEFT JOIN stock_balances AS b ON b.product_id = p.id").
		Order("p.created_at ASC, p.id ASC").
		Scan(&levels).Error
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// Totals aggregates balances across all products
func (r *GormStockReportRepository) Totals(ctx context.Context) (report.StockTotals, error) {
	var totals report.StockTotals
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("COUNT(*) AS products, " +
			"CAST(COALESCE(SUM(b.quantity), 0) AS BIGINT) AS on_hand, " +
			"CAST(COALESCE(SUM(CASE WHEN COALESCE(b.quantity, 0) = 0 THEN 1 ELSE 0 END), 0) AS BIGINT) AS out_of_stock").
		Joins("LEFT JOIN stock_balances AS b ON b.product_id = p.id").
		Scan(&totals).Error
	return totals, err
}

// Ensure GormStockReportRepository implements StockReportRepository
var _ report.StockReportRepository = (*GormStockReportRepository)(nil)
