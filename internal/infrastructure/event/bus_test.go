package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                             { return nil }

func stockEvent(kind inventory.EventKind) shared.DomainEvent {
	return inventory.NewStockChangedEvent(&inventory.StockEvent{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		Kind:         kind,
		Quantity:     3,
		BalanceAfter: 3,
	})
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_DispatchesByType(t *testing.T) {
	bus := startedBus(t)
	received := testutil.NewMockEventHandler(inventory.EventTypeStockReceived)
	shipped := testutil.NewMockEventHandler(inventory.EventTypeStockShipped)
	bus.Subscribe(received)
	bus.Subscribe(shipped)

	require.NoError(t, bus.Publish(context.Background(),
		stockEvent(inventory.EventKindInbound),
		stockEvent(inventory.EventKindOutbound),
		stockEvent(inventory.EventKindOutbound),
	))

	assert.Equal(t, 1, received.HandledCount())
	assert.Equal(t, 2, shipped.HandledCount())
}

func TestInMemoryEventBus_WildcardReceivesEverything(t *testing.T) {
	bus := startedBus(t)
	all := testutil.NewMockEventHandler()
	bus.Subscribe(all)

	product, err := catalog.NewProduct("Widget", "")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	require.NoError(t, bus.Publish(context.Background(), product.GetDomainEvents()...))

	assert.Equal(t, 2, all.HandledCount())
	assert.Equal(t, catalog.EventTypeProductCreated, all.Handled()[1].EventType())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := startedBus(t)
	handler := testutil.NewMockEventHandler(inventory.EventTypeStockReceived)
	bus.Subscribe(handler, inventory.EventTypeStockShipped)

	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindOutbound)))

	require.Equal(t, 1, handler.HandledCount())
	assert.Equal(t, inventory.EventTypeStockShipped, handler.Handled()[0].EventType())
}

func TestInMemoryEventBus_HandlerFailuresAreNotSurfaced(t *testing.T) {
	bus := startedBus(t)
	failing := testutil.NewMockEventHandler()
	failing.SetError(errors.New("redis down"))
	after := testutil.NewMockEventHandler()

	bus.Subscribe(failing)
	bus.Subscribe(panickingHandler{})
	bus.Subscribe(after)

	err := bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound))

	assert.NoError(t, err)
	assert.Equal(t, 1, failing.HandledCount())
	assert.Equal(t, 1, after.HandledCount())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	handler := testutil.NewMockEventHandler(inventory.EventTypeStockReceived)
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	assert.Zero(t, handler.HandledCount())
}

func TestInMemoryEventBus_DropsEventsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := testutil.NewMockEventHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	assert.Zero(t, handler.HandledCount())
	assert.False(t, bus.IsRunning())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	assert.Equal(t, 1, handler.HandledCount())

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), stockEvent(inventory.EventKindInbound)))
	assert.Equal(t, 1, handler.HandledCount())
}

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := testutil.NewMockEventHandler()
	wildcard := testutil.NewMockEventHandler()
	both := testutil.NewMockEventHandler()

	registry.Register(typed, inventory.EventTypeStockReceived, inventory.EventTypeStockShipped)
	registry.Register(typed, inventory.EventTypeStockReceived)
	registry.Register(wildcard)
	registry.Register(both, inventory.EventTypeStockReceived)
	registry.Register(both)

	handlers := registry.GetHandlers(inventory.EventTypeStockReceived)
	assert.Equal(t, []shared.EventHandler{typed, both, wildcard}, handlers)
	assert.Len(t, registry.GetHandlers(inventory.EventTypeStockShipped), 3)
	assert.Len(t, registry.GetHandlers(catalog.EventTypeProductCreated), 2)
	assert.Len(t, registry.GetAllHandlers(), 3)

	registry.Unregister(typed)
	assert.Equal(t, []shared.EventHandler{both, wildcard}, registry.GetHandlers(inventory.EventTypeStockReceived))
	assert.Equal(t, []shared.EventHandler{wildcard, both}, registry.GetHandlers(inventory.EventTypeStockShipped))
}
