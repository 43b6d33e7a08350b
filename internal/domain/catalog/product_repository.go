package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence.
// Products are never deleted, so there is no Delete.
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByName finds a product by its exact name
	FindByName(ctx context.Context, name string) (*Product, error)

	// FindAll returns every product in creation order
	FindAll(ctx context.Context) ([]Product, error)

	// FindByIDs finds multiple products by their IDs; unknown ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// ExistsByName checks if a product with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)

	// ExistsByID checks if a product with the given id exists
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	// Create inserts a new product
	Create(ctx context.Context, product *Product) error

	// UpdateDescription persists a description change
	UpdateDescription(ctx context.Context, product *Product) error
}
