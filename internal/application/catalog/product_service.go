package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProductService handles product registry operations
type ProductService struct {
	scope       appinventory.TransactionScope
	productRepo catalog.ProductRepository
	ledger      inventory.LedgerStore
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewProductService creates a new ProductService.
// productRepo and ledger serve reads; writes go through scope.
func NewProductService(
	scope appinventory.TransactionScope,
	productRepo catalog.ProductRepository,
	ledger inventory.LedgerStore,
	log *zap.Logger,
) *ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{
		scope:       scope,
		productRepo: productRepo,
		ledger:      ledger,
		logger:      log.Named("product_service"),
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateProduct registers a product with a zero balance
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ProductService", "CreateProduct")
	defer span.End()

	product, err := catalog.NewProduct(req.Name, req.Description)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		exists, err := repos.ProductRepo().ExistsByName(ctx, product.Name)
		if err != nil {
			return err
		}
		if exists {
			return catalog.ErrDuplicateName
		}
		if err := repos.ProductRepo().Create(ctx, product); err != nil {
			return err
		}
		return repos.LedgerStore().CreateBalance(ctx, inventory.NewStockBalance(product.ID))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.For(ctx, s.logger).Warn("Product not created", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	logger.For(ctx, s.logger).Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	s.publish(ctx, product)

	resp := ToProductResponse(product, 0)
	return &resp, nil
}

// ListProducts returns every product in creation order with its current stock
func (s *ProductService) ListProducts(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	balances, err := s.ledger.ReadBalances(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}

	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i], balances[products[i].ID])
	}
	return responses, nil
}

// GetProduct returns one product with its current stock
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	qty, err := s.ledger.ReadBalance(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product, qty)
	return &resp, nil
}

// UpdateDescription replaces a product description. The name is immutable.
func (s *ProductService) UpdateDescription(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ProductService", "UpdateDescription")
	defer span.End()

	if req.Description == nil {
		return nil, shared.NewValidationError("INVALID_DESCRIPTION", "Description is required")
	}

	var product *catalog.Product
	var qty int64
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		product, err = repos.ProductRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := product.UpdateDescription(*req.Description); err != nil {
			return err
		}
		if err := repos.ProductRepo().UpdateDescription(ctx, product); err != nil {
			return err
		}
		qty, err = repos.LedgerStore().ReadBalance(ctx, id)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, product)

	resp := ToProductResponse(product, qty)
	return &resp, nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.GetDomainEvents()
	product.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.For(ctx, s.logger).Warn("Failed to publish product events", zap.Error(err))
	}
}
