package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
)

// CreateProductRequest represents a request to register a product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateProductRequest represents a request to change a product description
type UpdateProductRequest struct {
	Description *string `json:"description" binding:"required,max=2000"`
}

// ProductResponse represents a product with its current stock
type ProductResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CurrentStock int64     `json:"current_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product, currentStock int64) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CurrentStock: currentStock,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
