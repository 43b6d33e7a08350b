package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Publisher is the subset of the go-redis client used for notifications
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// StockNotification is the JSON payload sent for every committed stock event
type StockNotification struct {
	EventID      uuid.UUID           `json:"event_id"`
	ProductID    uuid.UUID           `json:"product_id"`
	Kind         inventory.EventKind `json:"kind"`
	Quantity     int64               `json:"quantity"`
	Counterpart  string              `json:"counterpart,omitempty"`
	BalanceAfter int64               `json:"balance_after"`
	Timestamp    time.Time           `json:"timestamp"`
}

// RedisStockNotifier publishes stock changes on Redis Pub/Sub so presentation
// sessions can refresh without polling. Messages go to <prefix>stock:<product_id>
// and to the aggregate channel <prefix>stock.
type RedisStockNotifier struct {
	client Publisher
	prefix string
	logger *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStockNotifier creates a notifier publishing through client
func NewRedisStockNotifier(client Publisher, channelPrefix string, logger *zap.Logger) *RedisStockNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStockNotifier{client: client, prefix: channelPrefix, logger: logger}
}

// EventTypes returns the stock event types
func (n *RedisStockNotifier) EventTypes() []string {
	return []string{inventory.EventTypeStockReceived, inventory.EventTypeStockShipped}
}

// ProductChannel returns the per-product channel name
func (n *RedisStockNotifier) ProductChannel(productID uuid.UUID) string {
	return n.prefix + "stock:" + productID.String()
}

// AllChannel returns the channel receiving every stock change
func (n *RedisStockNotifier) AllChannel() string {
	return n.prefix + "stock"
}

// Handle publishes the change notification
func (n *RedisStockNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockChangedEvent)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(StockNotification{
		EventID:      changed.LedgerEventID,
		ProductID:    changed.ProductID,
		Kind:         changed.Kind,
		Quantity:     changed.Quantity,
		Counterpart:  changed.Counterpart,
		BalanceAfter: changed.BalanceAfter,
		Timestamp:    changed.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode stock notification: %w", err)
	}

	for _, channel := range []string{n.ProductChannel(changed.ProductID), n.AllChannel()} {
		if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}
	}

	n.logger.Debug("stock notification published",
		zap.String("product_id", changed.ProductID.String()),
		zap.String("kind", changed.Kind.String()),
	)
	return nil
}

// Ensure RedisStockNotifier implements EventHandler
var _ shared.EventHandler = (*RedisStockNotifier)(nil)
