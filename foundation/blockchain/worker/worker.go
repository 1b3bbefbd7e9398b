// Package worker runs the background workflows of a ledger node: draining
// the mempool into new blocks, sharing submitted transactions and keeping
// the known peers current through the directory.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// directoryInterval is how often the node registers with the directory to
// learn about new peers.
const directoryInterval = time.Minute

// Worker drives mining, transaction sharing and peer discovery for a state.
type Worker struct {
	state     *state.State
	evHandler state.EventHandler

	wg     sync.WaitGroup
	ticker *time.Ticker
	shut   chan struct{}

	startMining  chan struct{}
	cancelMining chan struct{}
	txSharing    chan database.Tx
}

// Run registers a new worker with the state and starts its workflows. The
// node registers with the directory before any workflow starts and any
// transactions already in the mempool are mined if mining is on.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:        st,
		evHandler:    evHandler,
		ticker:       time.NewTicker(directoryInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan struct{}, 1),
		cancelMining: make(chan struct{}, 1),
		txSharing:    make(chan database.Tx, maxPendingShares),
	}

	st.Worker = &w

	w.discoverPeers("startup")

	workflows := []func(){
		w.directoryLoop,
		w.miningLoop,
		w.shareLoop,
	}

	var started sync.WaitGroup
	started.Add(len(workflows))
	w.wg.Add(len(workflows))

	for _, workflow := range workflows {
		workflow := workflow
		go func() {
			defer w.wg.Done()
			started.Done()
			workflow()
		}()
	}

	started.Wait()

	w.SignalStartMining()

	return &w
}

// Shutdown cancels any block being mined and waits for the workflows to
// return.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	w.SignalCancelMining()

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining asks the mining workflow to drain the mempool. A request
// already pending covers this one.
func (w *Worker) SignalStartMining() {
	if !w.state.IsMining() {
		w.evHandler("worker: SignalStartMining: mining is off")
		return
	}

	select {
	case w.startMining <- struct{}{}:
		w.evHandler("worker: SignalStartMining: signaled")
	default:
	}
}

// SignalCancelMining stops the block currently being mined.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- struct{}{}:
		w.evHandler("worker: SignalCancelMining: signaled")
	default:
	}
}

// SignalShareTx queues the transaction to be sent to the known peers. The
// transaction is only kept locally when the queue is full.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
	default:
		w.evHandler("worker: SignalShareTx: queue full: tx[%s] not shared", tx.ID)
	}
}

// isShutdown reports if Shutdown has been called.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
