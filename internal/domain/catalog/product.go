package catalog

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stockledger/backend/internal/domain/shared"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 2000
)

// Product represents a stock-keeping item in the registry.
// Name is the human-facing identity and is immutable after creation; only Description may change.
type Product struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"type:varchar(200);not null;uniqueIndex:idx_products_name"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product. The name is kept exactly as given: uniqueness is case-sensitive.
func NewProduct(name, description string) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       description,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// UpdateDescription replaces the product description
func (p *Product) UpdateDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}

	p.Description = description
	p.UpdatedAt = time.Now().UTC()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("INVALID_NAME", "Product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return shared.NewValidationError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return shared.NewValidationError("INVALID_DESCRIPTION", "Product description cannot exceed 2000 characters")
	}
	return nil
}

// ErrDuplicateName is returned when a product with the same name already exists
var ErrDuplicateName = shared.NewValidationError("DUPLICATE_PRODUCT_NAME", "A product with this name already exists")

// ErrProductNotFound is returned when a product id does not resolve
var ErrProductNotFound = shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
