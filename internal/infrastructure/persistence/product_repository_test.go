package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductRepository_CreateAndFind(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	product, err := catalog.NewProduct("Widget", "A small widget")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, product))

	byID, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", byID.Name)
	assert.Equal(t, "A small widget", byID.Description)
	assert.WithinDuration(t, product.CreatedAt, byID.CreatedAt, time.Second)

	byName, err := repo.FindByName(ctx, "Widget")
	require.NoError(t, err)
	assert.Equal(t, product.ID, byName.ID)

	exists, err := repo.ExistsByName(ctx, "Widget")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByName(ctx, "widget")
	require.NoError(t, err)
	assert.False(t, exists, "names are case-sensitive")

	exists, err = repo.ExistsByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormProductRepository_NotFound(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByName(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	exists, err := repo.ExistsByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormProductRepository_UniqueIndexRejectsDuplicateName(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	first, _ := catalog.NewProduct("Widget", "")
	require.NoError(t, repo.Create(ctx, first))

	second, _ := catalog.NewProduct("Widget", "other")
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, catalog.ErrDuplicateName)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)
}

func TestGormProductRepository_FindAllInCreationOrder(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	empty, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	names := []string{"Zeta", "Alpha", "Mid"}
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		p, err := catalog.NewProduct(name, "")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := range names {
		assert.Equal(t, names[i], all[i].Name)
	}

	subset, err := repo.FindByIDs(ctx, []uuid.UUID{ids[2], uuid.New(), ids[0]})
	require.NoError(t, err)
	assert.Len(t, subset, 2)

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormProductRepository_UpdateDescription(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	product, _ := catalog.NewProduct("Widget", "old")
	require.NoError(t, repo.Create(ctx, product))

	require.NoError(t, product.UpdateDescription("new"))
	require.NoError(t, repo.UpdateDescription(ctx, product))

	got, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Description)
	assert.Equal(t, "Widget", got.Name)

	ghost, _ := catalog.NewProduct("Ghost", "")
	assert.ErrorIs(t, repo.UpdateDescription(ctx, ghost), catalog.ErrProductNotFound)
}
