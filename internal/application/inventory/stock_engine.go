package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Metrics receives stock engine outcomes. *telemetry.LedgerMetrics implements it.
type Metrics interface {
	RecordCommitted(ctx context.Context, kind string, quantity int64, elapsedMs float64)
	RecordRejected(ctx context.Context, kind, reason string)
}

// StockEngine accepts inbound and outbound requests and applies them to the ledger.
// Mutations of one product are serialized; different products proceed in parallel.
type StockEngine struct {
	scope     TransactionScope
	ledger    inventory.LedgerStore
	locks     *ProductLocks
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// NewStockEngine creates a StockEngine. ledger serves reads outside of transactions.
func NewStockEngine(scope TransactionScope, ledger inventory.LedgerStore, log *zap.Logger) *StockEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &StockEngine{
		scope:  scope,
		ledger: ledger,
		locks:  NewProductLocks(),
		logger: log.Named("stock_engine"),
	}
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *StockEngine) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics sink
func (s *StockEngine) SetMetrics(m Metrics) {
	s.metrics = m
}

// RecordInbound appends a receipt of quantity units from supplier
func (s *StockEngine) RecordInbound(ctx context.Context, req RecordInboundRequest) (*StockEventResponse, error) {
	return s.record(ctx, req.ProductID, inventory.EventKindInbound, req.Quantity, req.Supplier)
}

// RecordOutbound appends a shipment of quantity units to customer.
// It fails with an insufficient-stock error, leaving the ledger unchanged, if the balance is too low.
func (s *StockEngine) RecordOutbound(ctx context.Context, req RecordOutboundRequest) (*StockEventResponse, error) {
	return s.record(ctx, req.ProductID, inventory.EventKindOutbound, req.Quantity, req.Customer)
}

// GetBalance returns the current balance of a product
func (s *StockEngine) GetBalance(ctx context.Context, productID uuid.UUID) (*BalanceResponse, error) {
	qty, err := s.ledger.ReadBalance(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{ProductID: productID, CurrentStock: qty}, nil
}

func (s *StockEngine) record(ctx context.Context, productID uuid.UUID, kind inventory.EventKind, quantity int64, counterpart string) (*StockEventResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "StockEngine", operationName(kind),
		attribute.String(telemetry.AttrProductID, productID.String()),
		attribute.String(telemetry.AttrEventKind, kind.String()),
		attribute.Int64(telemetry.AttrQuantity, quantity),
	)
	defer span.End()

	log := logger.For(ctx, s.logger).With(
		zap.String("product_id", productID.String()),
		zap.String("kind", kind.String()),
		zap.Int64("quantity", quantity),
	)

	event, err := inventory.NewStockEvent(productID, kind, quantity, counterpart)
	if err != nil {
		s.reject(ctx, log, kind, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	unlock := s.locks.Lock(productID)
	var committed *inventory.StockEvent
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.ProductRepo().ExistsByID(ctx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return inventory.ErrUnknownProduct
		}
		committed, err = repos.LedgerStore().AppendEvent(ctx, event)
		return err
	})
	unlock()

	if err != nil {
		s.reject(ctx, log, kind, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordCommitted(ctx, kind.String(), quantity, float64(elapsed.Microseconds())/1000)
	}
	log.Info("Stock event committed",
		zap.String("event_id", committed.ID.String()),
		zap.Int64("balance_after", committed.BalanceAfter),
		zap.Duration("elapsed", elapsed),
	)

	if s.publisher != nil {
		// The commit already happened; a failed publish only loses the notification.
		if err := s.publisher.Publish(ctx, inventory.NewStockChangedEvent(committed)); err != nil {
			log.Warn("Failed to publish stock event",
				zap.String("event_id", committed.ID.String()),
				zap.Error(err),
			)
		}
	}

	resp := ToStockEventResponse(committed)
	return &resp, nil
}

func (s *StockEngine) reject(ctx context.Context, log *zap.Logger, kind inventory.EventKind, err error) {
	reason := rejectionReason(err)
	if s.metrics != nil {
		s.metrics.RecordRejected(ctx, kind.String(), reason)
	}
	if reason == "internal" {
		log.Error("Stock event failed", zap.Error(err))
		return
	}
	log.Warn("Stock event rejected", zap.String("reason", reason), zap.Error(err))
}

func rejectionReason(err error) string {
	switch shared.KindOf(err) {
	case shared.KindValidation:
		return "validation"
	case shared.KindNotFound:
		return "not_found"
	case shared.KindInsufficientStock:
		return "insufficient_stock"
	default:
		return "internal"
	}
}

func operationName(k inventory.EventKind) string {
	if k == inventory.EventKindOutbound {
		return "RecordOutbound"
	}
	return "RecordInbound"
}
