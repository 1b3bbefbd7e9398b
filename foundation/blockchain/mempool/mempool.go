// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"context"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Mempool represents a first in first out queue of transactions waiting to
// be mined. A transaction id can only be in the pool once.
type Mempool struct {
	mu     sync.Mutex
	queue  []database.Tx
	ids    map[string]struct{}
	notify chan struct{}
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		ids:    make(map[string]struct{}),
		notify: make(chan struct{}, 1),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.queue)
}

// Contains reports if a transaction with the specified id is in the pool.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	_, exists := mp.ids[id]
	return exists
}

// Upsert adds the transaction to the end of the pool. False is returned if
// a transaction with the same id is already in the pool.
func (mp *Mempool) Upsert(tx database.Tx) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.ids[tx.ID]; exists {
		return false
	}

	mp.queue = append(mp.queue, tx)
	mp.ids[tx.ID] = struct{}{}

	// Wake up anyone blocked in Take.
	select {
	case mp.notify <- struct{}{}:
	default:
	}

	return true
}

// Pop removes and returns the transaction at the front of the pool. False
// is returned when the pool is empty.
func (mp *Mempool) Pop() (database.Tx, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.pop()
}

// Take removes and returns the transaction at the front of the pool, waiting
// for one to be added if the pool is empty.
func (mp *Mempool) Take(ctx context.Context) (database.Tx, error) {
	for {
		mp.mu.Lock()
		tx, ok := mp.pop()
		mp.mu.Unlock()

		if ok {
			return tx, nil
		}

		select {
		case <-mp.notify:
		case <-ctx.Done():
			return database.Tx{}, ctx.Err()
		}
	}
}

// Copy returns the transactions in the pool in queue order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txs := make([]database.Tx, len(mp.queue))
	copy(txs, mp.queue)

	return txs
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.queue = nil
	mp.ids = make(map[string]struct{})
}

// =============================================================================

// pop removes the front of the queue. The caller must hold the lock.
func (mp *Mempool) pop() (database.Tx, bool) {
	if len(mp.queue) == 0 {
		return database.Tx{}, false
	}

	tx := mp.queue[0]
	mp.queue[0] = database.Tx{}
	mp.queue = mp.queue[1:]
	delete(mp.ids, tx.ID)

	return tx, true
}
