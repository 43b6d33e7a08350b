package persistence

import (
	"context"
	"testing"

	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

// newTestDatabase opens a migrated in-memory sqlite database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate(context.Background()))
	return db
}

// seedProduct registers a product and its zero balance
func seedProduct(t *testing.T, db *Database, name string) *catalog.Product {
	t.Helper()
	ctx := context.Background()

	product, err := catalog.NewProduct(name, "")
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db.DB).Create(ctx, product))
	require.NoError(t, NewGormLedgerStore(db.DB).CreateBalance(ctx, inventory.NewStockBalance(product.ID)))
	return product
}
