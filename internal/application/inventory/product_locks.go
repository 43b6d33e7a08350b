package inventory

import (
	"sync"

	"github.com/google/uuid"
)

// ProductLocks serializes work per product id. Different products never contend.
// Entries are reference counted and dropped once no goroutine holds or waits on them.
type ProductLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

// NewProductLocks creates an empty lock table
func NewProductLocks() *ProductLocks {
	return &ProductLocks{locks: make(map[uuid.UUID]*productLock)}
}

// Lock blocks until the caller holds the lock for id and returns its release function.
func (l *ProductLocks) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	pl, ok := l.locks[id]
	if !ok {
		pl = &productLock{}
		l.locks[id] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			pl.mu.Unlock()
			l.mu.Lock()
			pl.refs--
			if pl.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of products currently locked or awaited
func (l *ProductLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
