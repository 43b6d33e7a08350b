package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/report"
	"github.com/stretchr/testify/require"
)

// MemoryStore is an in-memory registry and ledger implementing the application
// TransactionScope. Execute runs one transaction at a time and restores the prior
// state when fn fails, so it models atomic commits without a database.
type MemoryStore struct {
	mu       sync.Mutex
	products []catalog.Product
	balances map[uuid.UUID]inventory.StockBalance
	events   []inventory.StockEvent

	appendErr error
	executes  int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[uuid.UUID]inventory.StockBalance)}
}

// Execute runs fn inside a transaction
func (s *MemoryStore) Execute(ctx context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executes++

	products := append([]catalog.Product(nil), s.products...)
	balances := make(map[uuid.UUID]inventory.StockBalance, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	events := append([]inventory.StockEvent(nil), s.events...)

	if err := fn(&memoryView{s: s, inTx: true}); err != nil {
		s.products, s.balances, s.events = products, balances, events
		return err
	}
	return nil
}

// ProductRepo returns a non-transactional product repository
func (s *MemoryStore) ProductRepo() catalog.ProductRepository {
	return &memoryView{s: s}
}

// LedgerStore returns a non-transactional ledger store
func (s *MemoryStore) LedgerStore() inventory.LedgerStore {
	return &memoryView{s: s}
}

// FailAppendWith makes every following AppendEvent fail with err after writing the event,
// which exercises rollback. Pass nil to clear.
func (s *MemoryStore) FailAppendWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

// EventCount returns the number of committed events
func (s *MemoryStore) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Executes returns how many transactions were started
func (s *MemoryStore) Executes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executes
}

// InsertOrphanEvent appends an event for a product that is not in the registry.
// Used to exercise placeholder rendering in reports.
func (s *MemoryStore) InsertOrphanEvent(e inventory.StockEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// SeedProduct registers a product with a zero balance outside of any service
func (s *MemoryStore) SeedProduct(t *testing.T, name string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(name, "")
	require.NoError(t, err)
	err = s.Execute(context.Background(), func(repos appinventory.TransactionalRepositories) error {
		if err := repos.ProductRepo().Create(context.Background(), product); err != nil {
			return err
		}
		return repos.LedgerStore().CreateBalance(context.Background(), inventory.NewStockBalance(product.ID))
	})
	require.NoError(t, err)
	product.ClearDomainEvents()
	return product
}

type memoryView struct {
	s    *MemoryStore
	inTx bool
}

func (v *memoryView) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v *memoryView) ProductRepo() catalog.ProductRepository { return v }

func (v *memoryView) LedgerStore() inventory.LedgerStore { return v }

func (v *memoryView) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	defer v.lock()()
	for i := range v.s.products {
		if v.s.products[i].ID == id {
			p := v.s.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (v *memoryView) FindByName(ctx context.Context, name string) (*catalog.Product, error) {
	defer v.lock()()
	for i := range v.s.products {
		if v.s.products[i].Name == name {
			p := v.s.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (v *memoryView) FindAll(ctx context.Context) ([]catalog.Product, error) {
	defer v.lock()()
	return append([]catalog.Product{}, v.s.products...), nil
}

func (v *memoryView) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	defer v.lock()()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	result := []catalog.Product{}
	for _, p := range v.s.products {
		if want[p.ID] {
			result = append(result, p)
		}
	}
	return result, nil
}

func (v *memoryView) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := v.FindByName(ctx, name)
	return err == nil, nil
}

func (v *memoryView) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := v.FindByID(ctx, id)
	return err == nil, nil
}

func (v *memoryView) Create(ctx context.Context, product *catalog.Product) error {
	defer v.lock()()
	for _, p := range v.s.products {
		if p.Name == product.Name {
			return catalog.ErrDuplicateName
		}
	}
	stored := *product
	stored.ClearDomainEvents()
	v.s.products = append(v.s.products, stored)
	return nil
}

func (v *memoryView) UpdateDescription(ctx context.Context, product *catalog.Product) error {
	defer v.lock()()
	for i := range v.s.products {
		if v.s.products[i].ID == product.ID {
			v.s.products[i].Description = product.Description
			v.s.products[i].UpdatedAt = product.UpdatedAt
			return nil
		}
	}
	return catalog.ErrProductNotFound
}

func (v *memoryView) CreateBalance(ctx context.Context, balance *inventory.StockBalance) error {
	defer v.lock()()
	v.s.balances[balance.ProductID] = *balance
	return nil
}

func (v *memoryView) AppendEvent(ctx context.Context, event *inventory.StockEvent) (*inventory.StockEvent, error) {
	defer v.lock()()
	bal, ok := v.s.balances[event.ProductID]
	if !ok {
		return nil, inventory.ErrUnknownProduct
	}
	committed := *event
	if err := bal.Apply(&committed, time.Now().UTC()); err != nil {
		return nil, err
	}
	v.s.events = append(v.s.events, committed)
	v.s.balances[event.ProductID] = bal
	if v.s.appendErr != nil {
		return nil, v.s.appendErr
	}
	return &committed, nil
}

func (v *memoryView) ReadBalance(ctx context.Context, productID uuid.UUID) (int64, error) {
	defer v.lock()()
	bal, ok := v.s.balances[productID]
	if !ok {
		return 0, inventory.ErrUnknownProduct
	}
	return bal.Quantity, nil
}

func (v *memoryView) ReadBalances(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	defer v.lock()()
	result := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		if bal, ok := v.s.balances[id]; ok {
			result[id] = bal.Quantity
		}
	}
	return result, nil
}

func (v *memoryView) ReadEvents(ctx context.Context, filter inventory.EventFilter) ([]inventory.StockEvent, int64, error) {
	defer v.lock()()
	matched := []inventory.StockEvent{}
	for _, e := range v.s.events {
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		if filter.StartTime != nil && e.OccurredAt.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && !e.OccurredAt.Before(*filter.EndTime) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.Before(matched[j].OccurredAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := int64(len(matched))
	if filter.PageSize > 0 {
		start := filter.Offset()
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (v *memoryView) SumByKind(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	defer v.lock()()
	var in, out int64
	for _, e := range v.s.events {
		if e.ProductID != productID {
			continue
		}
		if e.Kind == inventory.EventKindInbound {
			in += e.Quantity
		} else {
			out += e.Quantity
		}
	}
	return in, out, nil
}

func (v *memoryView) ReadLedgerTotals(ctx context.Context, productID uuid.UUID) (*inventory.LedgerTotals, error) {
	defer v.lock()()
	bal, ok := v.s.balances[productID]
	if !ok {
		return nil, inventory.ErrUnknownProduct
	}
	totals := &inventory.LedgerTotals{Balance: bal.Quantity}
	for _, e := range v.s.events {
		if e.ProductID != productID {
			continue
		}
		if e.Kind == inventory.EventKindInbound {
			totals.Inbound += e.Quantity
		} else {
			totals.Outbound += e.Quantity
		}
	}
	return totals, nil
}

// ReportRepo returns a stock report repository over the store
func (s *MemoryStore) ReportRepo() report.StockReportRepository {
	return &memoryView{s: s}
}

func (v *memoryView) StockLevels(ctx context.Context) ([]report.StockLevel, error) {
	defer v.lock()()
	levels := make([]report.StockLevel, 0, len(v.s.products))
	for _, p := range v.s.products {
		levels = append(levels, report.StockLevel{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Quantity:    v.s.balances[p.ID].Quantity,
			CreatedAt:   p.CreatedAt,
		})
	}
	return levels, nil
}

func (v *memoryView) Totals(ctx context.Context) (report.StockTotals, error) {
	defer v.lock()()
	var totals report.StockTotals
	for _, p := range v.s.products {
		q := v.s.balances[p.ID].Quantity
		totals.Products++
		totals.OnHand += q
		if q == 0 {
			totals.OutOfStock++
		}
	}
	return totals, nil
}

var (
	_ report.StockReportRepository           = (*memoryView)(nil)
	_ appinventory.TransactionScope          = (*MemoryStore)(nil)
	_ appinventory.TransactionalRepositories = (*memoryView)(nil)
	_ catalog.ProductRepository              = (*memoryView)(nil)
	_ inventory.LedgerStore                  = (*memoryView)(nil)
)
