// Package scheduler runs background maintenance jobs against the ledger.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	reportapp "github.com/stockledger/backend/internal/application/report"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BalanceAuditor lists products and recomputes their balances from the ledger
type BalanceAuditor interface {
	Snapshot(ctx context.Context) ([]reportapp.SnapshotEntry, error)
	VerifyBalance(ctx context.Context, productID uuid.UUID) (*reportapp.BalanceAudit, error)
}

// AuditConfig holds balance audit configuration
type AuditConfig struct {
	Interval     time.Duration
	Workers      int
	SweepTimeout time.Duration
}

// DefaultAuditConfig returns default audit configuration
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Interval:     time.Hour,
		Workers:      4,
		SweepTimeout: 10 * time.Minute,
	}
}

// AuditResult summarizes one sweep over every product
type AuditResult struct {
	Checked      int         `json:"checked"`
	Inconsistent []uuid.UUID `json:"inconsistent"`
	Failed       int         `json:"failed"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
}

// Consistent reports whether every checked balance matched its ledger
func (r AuditResult) Consistent() bool {
	return len(r.Inconsistent) == 0 && r.Failed == 0
}

// BalanceAuditScheduler periodically verifies that every materialized balance
// equals the sum of its ledger events.
type BalanceAuditScheduler struct {
	config  AuditConfig
	auditor BalanceAuditor
	logger  *zap.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	sweeping   bool
	lastResult *AuditResult
}

// NewBalanceAuditScheduler creates a new scheduler instance
func NewBalanceAuditScheduler(config AuditConfig, auditor BalanceAuditor, logger *zap.Logger) (*BalanceAuditScheduler, error) {
	if config.Interval <= 0 || config.Workers < 1 {
		return nil, fmt.Errorf("%w: interval %s, workers %d", ErrInvalidConfig, config.Interval, config.Workers)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceAuditScheduler{
		config:  config,
		auditor: auditor,
		logger:  logger.Named("balance_audit"),
	}, nil
}

// Start launches the periodic sweep loop. The first sweep runs after one interval.
func (s *BalanceAuditScheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Balance audit scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("workers", s.config.Workers),
	)
	return nil
}

// Stop cancels the loop and waits for a running sweep to finish
func (s *BalanceAuditScheduler) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Balance audit scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Balance audit scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the periodic loop is active
func (s *BalanceAuditScheduler) IsRunning() bool {
	return s.running.Load()
}

// LastResult returns the result of the most recent completed sweep, or nil
func (s *BalanceAuditScheduler) LastResult() *AuditResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *BalanceAuditScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Balance audit sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce verifies every product with at most Workers concurrent checks.
// A product that cannot be checked is counted as failed and does not stop the sweep.
func (s *BalanceAuditScheduler) RunOnce(ctx context.Context) (*AuditResult, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}

	result := &AuditResult{StartedAt: time.Now().UTC()}
	products, err := s.auditor.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var (
		mu       sync.Mutex
		failures atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, p := range products {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			audit, err := s.auditor.VerifyBalance(gctx, p.ProductID)
			if err != nil {
				failures.Add(1)
				s.logger.Warn("Balance audit check failed",
					zap.String("product_id", p.ProductID.String()),
					zap.Error(err),
				)
				return nil
			}
			if !audit.Consistent {
				mu.Lock()
				result.Inconsistent = append(result.Inconsistent, p.ProductID)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Checked = len(products)
	result.Failed = int(failures.Load())
	result.FinishedAt = time.Now().UTC()

	fields := []zap.Field{
		zap.Int("checked", result.Checked),
		zap.Int("inconsistent", len(result.Inconsistent)),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	}
	if result.Consistent() {
		s.logger.Info("Balance audit completed", fields...)
	} else {
		s.logger.Error("Balance audit found problems", fields...)
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()
	return result, nil
}
