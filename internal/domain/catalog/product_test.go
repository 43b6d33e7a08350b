package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid inputs", func(t *testing.T) {
		product, err := NewProduct("Widget", "blue widget")
		require.NoError(t, err)
		require.NotNil(t, product)

		assert.Equal(t, "Widget", product.Name)
		assert.Equal(t, "blue widget", product.Description)
		assert.NotEmpty(t, product.ID)
		assert.False(t, product.CreatedAt.IsZero())
		assert.Equal(t, "UTC", product.CreatedAt.Location().String())
	})

	t.Run("keeps name exactly as given", func(t *testing.T) {
		product, err := NewProduct(" widget ", "")
		require.NoError(t, err)
		assert.Equal(t, " widget ", product.Name)
	})

	t.Run("publishes ProductCreated event", func(t *testing.T) {
		product, err := NewProduct("Gadget", "")
		require.NoError(t, err)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())

		event, ok := events[0].(*ProductCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, product.ID, event.ProductID)
		assert.Equal(t, "Gadget", event.Name)
		assert.Equal(t, product.ID, event.AggregateID())
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewProduct("", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with blank name", func(t *testing.T) {
		_, err := NewProduct("   ", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("fails with name too long", func(t *testing.T) {
		_, err := NewProduct(strings.Repeat("a", 201), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 200 characters")
	})

	t.Run("counts multibyte names by character", func(t *testing.T) {
		_, err := NewProduct(strings.Repeat("é", 200), "")
		require.NoError(t, err)
	})

	t.Run("fails with description too long", func(t *testing.T) {
		_, err := NewProduct("Widget", strings.Repeat("d", 2001))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestProduct_UpdateDescription(t *testing.T) {
	product, err := NewProduct("Widget", "old")
	require.NoError(t, err)
	product.ClearDomainEvents()
	before := product.UpdatedAt

	require.NoError(t, product.UpdateDescription("new"))

	assert.Equal(t, "new", product.Description)
	assert.Equal(t, "Widget", product.Name)
	assert.False(t, product.UpdatedAt.Before(before))
	events := product.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeProductUpdated, events[0].EventType())
}

func TestDuplicateNameIsValidationKind(t *testing.T) {
	assert.True(t, errors.Is(ErrDuplicateName, shared.ErrValidation))
	assert.True(t, errors.Is(ErrProductNotFound, shared.ErrNotFound))
}
