package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a nil meter is passed to NewLedgerMetrics
var ErrMeterNil = errors.New("meter cannot be nil")

// StockTotalsProvider reports aggregate stock levels for the observable gauges.
type StockTotalsProvider interface {
	// StockTotals returns the total units on hand and the number of products with zero stock
	StockTotals(ctx context.Context) (onHand int64, outOfStock int64, err error)
}

// LedgerMetrics records stock movement counters and aggregate stock gauges.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	eventsTotal     *Counter
	quantityTotal   *Counter
	rejectionsTotal *Counter
	appendLatency   *Histogram
	registration    metric.Registration
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
// If provider is non-nil, on-hand and out-of-stock gauges are observed from it.
func NewLedgerMetrics(meter metric.Meter, provider StockTotalsProvider, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LedgerMetrics{}
	var err error
	if m.eventsTotal, err = NewCounter(meter, "ledger_stock_events_total", "Committed stock events", "{event}"); err != nil {
		return nil, err
	}
	if m.quantityTotal, err = NewCounter(meter, "ledger_stock_quantity_total", "Units moved by committed stock events", "{unit}"); err != nil {
		return nil, err
	}
	if m.rejectionsTotal, err = NewCounter(meter, "ledger_stock_rejections_total", "Rejected stock requests", "{request}"); err != nil {
		return nil, err
	}
	if m.appendLatency, err = NewHistogram(meter, "ledger_append_duration", "Time to commit a stock event", "ms",
		1, 2, 5, 10, 25, 50, 100, 250, 500, 1000); err != nil {
		return nil, err
	}

	if provider != nil {
		onHand, err := meter.Int64ObservableGauge("ledger_stock_on_hand", metric.WithDescription("Total units on hand"))
		if err != nil {
			return nil, fmt.Errorf("failed to create gauge ledger_stock_on_hand: %w", err)
		}
		outOfStock, err := meter.Int64ObservableGauge("ledger_products_out_of_stock", metric.WithDescription("Products with zero balance"))
		if err != nil {
			return nil, fmt.Errorf("failed to create gauge ledger_products_out_of_stock: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			total, empty, err := provider.StockTotals(ctx)
			if err != nil {
				logger.Warn("Failed to collect stock totals", zap.Error(err))
				return nil
			}
			o.ObserveInt64(onHand, total)
			o.ObserveInt64(outOfStock, empty)
			return nil
		}, onHand, outOfStock)
		if err != nil {
			return nil, fmt.Errorf("failed to register stock gauges: %w", err)
		}
	}

	return m, nil
}

// RecordCommitted counts a committed stock event
func (m *LedgerMetrics) RecordCommitted(ctx context.Context, kind string, quantity int64, elapsedMs float64) {
	if m == nil {
		return
	}
	attrs := attribute.String("kind", kind)
	m.eventsTotal.Inc(ctx, attrs)
	m.quantityTotal.Add(ctx, quantity, attrs)
	m.appendLatency.Record(ctx, elapsedMs, attrs)
}

// RecordRejected counts a rejected stock request by reason (validation, not_found, insufficient_stock)
func (m *LedgerMetrics) RecordRejected(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.Inc(ctx, attribute.String("kind", kind), attribute.String("reason", reason))
}

// Close unregisters the gauge callback
func (m *LedgerMetrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
