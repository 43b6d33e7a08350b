package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingMetrics struct {
	mu        sync.Mutex
	committed map[string]int64
	rejected  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{committed: map[string]int64{}, rejected: map[string]int{}}
}

func (m *recordingMetrics) RecordCommitted(ctx context.Context, kind string, quantity int64, elapsedMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[kind] += quantity
}

func (m *recordingMetrics) RecordRejected(ctx context.Context, kind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func newEngine(t *testing.T) (*appinventory.StockEngine, *testutil.MemoryStore, *testutil.RecordingPublisher, *recordingMetrics) {
	t.Helper()
	store := testutil.NewMemoryStore()
	engine := appinventory.NewStockEngine(store, store.LedgerStore(), zap.NewNop())
	pub := &testutil.RecordingPublisher{}
	metrics := newRecordingMetrics()
	engine.SetEventPublisher(pub)
	engine.SetMetrics(metrics)
	return engine, store, pub, metrics
}

func TestStockEngine_RecordInbound(t *testing.T) {
	ctx := context.Background()
	engine, store, pub, metrics := newEngine(t)
	product := store.SeedProduct(t, "Widget")

	resp, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{
		ProductID: product.ID,
		Quantity:  10,
		Supplier:  "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, resp.ProductID)
	assert.Equal(t, "INBOUND", resp.Kind)
	assert.Equal(t, int64(10), resp.Quantity)
	assert.Equal(t, "Acme", resp.Supplier)
	assert.Empty(t, resp.Customer)
	assert.Equal(t, int64(10), resp.BalanceAfter)
	assert.False(t, resp.Timestamp.IsZero())

	bal, err := engine.GetBalance(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.CurrentStock)

	assert.Equal(t, []string{inventory.EventTypeStockReceived}, pub.EventTypes())
	assert.Equal(t, int64(10), metrics.committed["INBOUND"])
}

func TestStockEngine_PublishFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	core, logs := observer.New(zapcore.WarnLevel)
	engine := appinventory.NewStockEngine(store, store.LedgerStore(), zap.New(core))
	pub := &testutil.RecordingPublisher{}
	pub.SetError(errors.New("event bus is not running"))
	engine.SetEventPublisher(pub)
	product := store.SeedProduct(t, "Widget")

	resp, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: product.ID, Quantity: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.BalanceAfter)
	assert.Equal(t, 1, store.EventCount())
	assert.Empty(t, pub.Events())

	entries := logs.FilterMessage("Failed to publish stock event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "event bus is not running", entries[0].ContextMap()["error"])
}

func TestStockEngine_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		quantity int64
		supplier string
		code     string
	}{
		{"zero quantity", 0, "Acme", "INVALID_QUANTITY"},
		{"negative quantity", -5, "Acme", "INVALID_QUANTITY"},
		{"supplier too long", 1, string(make([]byte, 201)), "INVALID_COUNTERPART"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, pub, metrics := newEngine(t)
			product := store.SeedProduct(t, "Widget")
			before := store.Executes()

			_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{
				ProductID: product.ID,
				Quantity:  tt.quantity,
				Supplier:  tt.supplier,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)

			assert.Equal(t, before, store.Executes(), "validation must happen before touching the store")
			assert.Equal(t, 0, store.EventCount())
			assert.Empty(t, pub.Events())
			assert.Equal(t, 1, metrics.rejected["validation"])
		})
	}
}

func TestStockEngine_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	engine, store, _, metrics := newEngine(t)

	_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = engine.GetBalance(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, 0, store.EventCount())
	assert.Equal(t, 2, metrics.rejected["not_found"])
}

func TestStockEngine_InsufficientStockLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	engine, store, pub, metrics := newEngine(t)
	product := store.SeedProduct(t, "Widget")

	_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{
		ProductID: product.ID,
		Quantity:  4,
		Customer:  "Bob",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available 3, requested 4")

	bal, err := engine.GetBalance(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bal.CurrentStock)
	assert.Equal(t, 1, store.EventCount())
	assert.Len(t, pub.Events(), 1)
	assert.Equal(t, 1, metrics.rejected["insufficient_stock"])
}

func TestStockEngine_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	engine, store, pub, metrics := newEngine(t)
	product := store.SeedProduct(t, "Widget")

	store.FailAppendWith(errors.New("disk full"))
	_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: product.ID, Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))

	store.FailAppendWith(nil)
	bal, err := engine.GetBalance(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.CurrentStock)
	assert.Equal(t, 0, store.EventCount())
	assert.Empty(t, pub.Events())
	assert.Equal(t, 1, metrics.rejected["internal"])
}

// Widget: +10 from Acme, -4 to Bob, -7 to Carl rejected, -6 to Carl accepted.
func TestStockEngine_WidgetScenario(t *testing.T) {
	ctx := context.Background()
	engine, store, _, _ := newEngine(t)
	widget := store.SeedProduct(t, "Widget")

	in, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: widget.ID, Quantity: 10, Supplier: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), in.BalanceAfter)

	out, err := engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: widget.ID, Quantity: 4, Customer: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.BalanceAfter)
	assert.Equal(t, "Bob", out.Customer)

	_, err = engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: widget.ID, Quantity: 7, Customer: "Carl"})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	out, err = engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: widget.ID, Quantity: 6, Customer: "Carl"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.BalanceAfter)

	bal, err := engine.GetBalance(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.CurrentStock)
	assert.Equal(t, 3, store.EventCount())
}

func TestStockEngine_ConcurrentOutboundsNeverOversell(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		balance int64
		workers int
	}{
		{"more requests than stock", 7, 25},
		{"fewer requests than stock", 30, 12},
		{"empty stock", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, _, _ := newEngine(t)
			product := store.SeedProduct(t, "Widget")
			if tt.balance > 0 {
				_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: product.ID, Quantity: tt.balance})
				require.NoError(t, err)
			}

			var succeeded, insufficient atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < tt.workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: product.ID, Quantity: 1})
					switch {
					case err == nil:
						succeeded.Add(1)
					case errors.Is(err, shared.ErrInsufficientStock):
						insufficient.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			want := min(int64(tt.workers), tt.balance)
			assert.Equal(t, want, succeeded.Load())
			assert.Equal(t, int64(tt.workers)-want, insufficient.Load())

			bal, err := engine.GetBalance(ctx, product.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.balance-want, bal.CurrentStock)
		})
	}
}

func TestStockEngine_ConcurrentMixedTrafficKeepsBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	engine, store, _, _ := newEngine(t)
	a := store.SeedProduct(t, "A")
	b := store.SeedProduct(t, "B")

	var wg sync.WaitGroup
	var shippedA, shippedB atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: a.ID, Quantity: 2})
			assert.NoError(t, err)
			if _, err := engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: a.ID, Quantity: 3}); err == nil {
				shippedA.Add(3)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := engine.RecordInbound(ctx, appinventory.RecordInboundRequest{ProductID: b.ID, Quantity: 5})
			assert.NoError(t, err)
			if _, err := engine.RecordOutbound(ctx, appinventory.RecordOutboundRequest{ProductID: b.ID, Quantity: 1}); err == nil {
				shippedB.Add(1)
			}
		}()
	}
	wg.Wait()

	balA, err := engine.GetBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 40-shippedA.Load(), balA.CurrentStock)
	assert.GreaterOrEqual(t, balA.CurrentStock, int64(0))

	balB, err := engine.GetBalance(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 100-shippedB.Load(), balB.CurrentStock)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		in, out, err := store.LedgerStore().SumByKind(ctx, id)
		require.NoError(t, err)
		bal, err := store.LedgerStore().ReadBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, in-out, bal)
	}
}
