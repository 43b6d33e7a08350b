package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	reportapp "github.com/stockledger/backend/internal/application/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuditor struct {
	products     []uuid.UUID
	inconsistent map[uuid.UUID]bool
	failing      map[uuid.UUID]bool
	snapshotErr  error
	delay        time.Duration
	block        chan struct{}

	calls       atomic.Int64
	active      atomic.Int64
	maxActive   atomic.Int64
	sweepsMu    sync.Mutex
	sweepsCount int
}

func (f *fakeAuditor) Snapshot(ctx context.Context) ([]reportapp.SnapshotEntry, error) {
	f.sweepsMu.Lock()
	f.sweepsCount++
	f.sweepsMu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	entries := make([]reportapp.SnapshotEntry, len(f.products))
	for i, id := range f.products {
		entries[i] = reportapp.SnapshotEntry{ProductID: id}
	}
	return entries, nil
}

func (f *fakeAuditor) VerifyBalance(ctx context.Context, productID uuid.UUID) (*reportapp.BalanceAudit, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	time.Sleep(f.delay)

	if f.failing[productID] {
		return nil, errors.New("database is locked")
	}
	return &reportapp.BalanceAudit{ProductID: productID, Consistent: !f.inconsistent[productID]}, nil
}

func (f *fakeAuditor) sweeps() int {
	f.sweepsMu.Lock()
	defer f.sweepsMu.Unlock()
	return f.sweepsCount
}

func productIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestNewBalanceAuditScheduler_RejectsInvalidConfig(t *testing.T) {
	_, err := NewBalanceAuditScheduler(AuditConfig{Interval: 0, Workers: 1}, &fakeAuditor{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewBalanceAuditScheduler(AuditConfig{Interval: time.Second, Workers: 0}, &fakeAuditor{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBalanceAuditScheduler_RunOnce(t *testing.T) {
	ids := productIDs(10)
	auditor := &fakeAuditor{
		products:     ids,
		inconsistent: map[uuid.UUID]bool{ids[3]: true},
		failing:      map[uuid.UUID]bool{ids[7]: true},
		delay:        5 * time.Millisecond,
	}
	s, err := NewBalanceAuditScheduler(AuditConfig{Interval: time.Hour, Workers: 3}, auditor, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, s.LastResult())

	result, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, result.Checked)
	assert.Equal(t, []uuid.UUID{ids[3]}, result.Inconsistent)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Consistent())
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
	assert.Equal(t, int64(10), auditor.calls.Load())
	assert.LessOrEqual(t, auditor.maxActive.Load(), int64(3))
	assert.Same(t, result, s.LastResult())
}

func TestBalanceAuditScheduler_RunOnceEmptyLedger(t *testing.T) {
	s, err := NewBalanceAuditScheduler(DefaultAuditConfig(), &fakeAuditor{}, nil)
	require.NoError(t, err)

	result, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Checked)
	assert.True(t, result.Consistent())
}

func TestBalanceAuditScheduler_SnapshotFailure(t *testing.T) {
	s, err := NewBalanceAuditScheduler(DefaultAuditConfig(), &fakeAuditor{snapshotErr: errors.New("boom")}, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())

	assert.ErrorContains(t, err, "boom")
	assert.Nil(t, s.LastResult())
}

func TestBalanceAuditScheduler_OneSweepAtATime(t *testing.T) {
	auditor := &fakeAuditor{products: productIDs(1), block: make(chan struct{})}
	s, err := NewBalanceAuditScheduler(DefaultAuditConfig(), auditor, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return auditor.active.Load() == 1 }, time.Second, time.Millisecond)

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(auditor.block)
	assert.NoError(t, <-done)
}

func TestBalanceAuditScheduler_StartStop(t *testing.T) {
	auditor := &fakeAuditor{products: productIDs(2)}
	s, err := NewBalanceAuditScheduler(AuditConfig{Interval: 10 * time.Millisecond, Workers: 2}, auditor, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return auditor.sweeps() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))

	after := auditor.sweeps()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, auditor.sweeps())
	require.NotNil(t, s.LastResult())
	assert.Equal(t, 2, s.LastResult().Checked)
}
