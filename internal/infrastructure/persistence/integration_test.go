//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	appcatalog "github.com/stockledger/backend/internal/application/catalog"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// newPostgresDatabase starts a PostgreSQL container and applies the repository migrations
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver:       config.DriverPostgres,
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "stockledger_test",
		SSLMode:      "disable",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}

	migrateDB, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err)
	_, file, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
	require.NoError(t, migration.Apply(migrateDB, migrationsPath, zap.NewNop()))

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_LedgerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := newPostgresDatabase(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db.DB, DefaultRetryPolicy(), zap.NewNop())
	store := NewGormLedgerStore(db.DB)
	products := appcatalog.NewProductService(scope, NewGormProductRepository(db.DB), store, zap.NewNop())
	engine := appinventory.NewStockEngine(scope, store, zap.NewNop())

	widget, err := products.CreateProduct(ctx, appcatalog.CreateProductRequest{Name: "Widget"})
	require.NoError(t, err)

	_, err = products.CreateProduct(ctx, appcatalog.CreateProductRequest{Name: "Widget"})
	assert.ErrorIs(t, err, catalog.ErrDuplicateName)

	const balance, workers = 15, 40
	_, err = engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: widget.ID, Quantity: balance, Supplier: "Acme"})
	require.NoError(t, err)

	var ok atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: widget.ID, Quantity: 1, Customer: "Bob"})
			if err == nil {
				ok.Add(1)
				return
			}
			if !errors.Is(err, shared.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(balance), ok.Load())

	qty, err := store.ReadBalance(ctx, widget.ID)
	require.NoError(t, err)
	assert.Zero(t, qty)

	in, out, err := store.SumByKind(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(balance), in)
	assert.Equal(t, int64(balance), out)
}

func TestPostgres_StockEventsAreAppendOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := newPostgresDatabase(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db.DB, DefaultRetryPolicy(), zap.NewNop())
	product := seedProduct(t, db, "Widget")

	err := scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		event, err := inventory.NewStockEvent(product.ID, inventory.EventKindInbound, 3, "Acme")
		require.NoError(t, err)
		_, err = repos.LedgerStore().AppendEvent(ctx, event)
		return err
	})
	require.NoError(t, err)

	assert.Error(t, db.DB.Exec("UPDATE stock_events SET quantity = 99").Error)
	assert.Error(t, db.DB.Exec("DELETE FROM stock_events").Error)
	assert.Error(t, db.DB.Exec("UPDATE stock_balances SET quantity = -1").Error)
}
