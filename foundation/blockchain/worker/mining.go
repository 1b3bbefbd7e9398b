package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// miningLoop drains the mempool each time mining is signaled.
func (w *Worker) miningLoop() {
	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.drainMempool()
			}

		case <-w.shut:
			return
		}
	}
}

// drainMempool mines the pending transactions until nothing is left to
// mine, mining is turned off or a cancel is signaled.
func (w *Worker) drainMempool() {
	if !w.state.IsMining() {
		return
	}

	pending := w.state.QueryMempoolLength()
	if pending == 0 {
		return
	}

	// A cancel left over from an earlier block must not stop this one.
	select {
	case <-w.cancelMining:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-w.cancelMining:
			w.evHandler("worker: drainMempool: cancel requested")
			cancel()
		case <-done:
		}
	}()

	w.evHandler("worker: drainMempool: started: pending[%d]", pending)

	start := time.Now()
	_, err := w.state.MinePending(ctx)
	close(done)

	w.evHandler("worker: drainMempool: completed: length[%d] duration[%v] %s", w.state.ChainLength(), time.Since(start), outcome(err))
}

// outcome describes how a mining run ended.
func outcome(err error) string {
	switch {
	case err == nil:
		return "mined"
	case errors.Is(err, state.ErrNoCandidate):
		return "no candidate"
	case errors.Is(err, database.ErrChainEmpty):
		return "no genesis block"
	case errors.Is(err, pow.ErrCancelled):
		return "cancelled"
	default:
		return "ERROR: " + err.Error()
	}
}
