package worker

// maxPendingShares is the number of submitted transactions that can wait to
// be shared with the peers.
const maxPendingShares = 100

// shareLoop sends each queued transaction to the known peers.
func (w *Worker) shareLoop() {
	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.state.NetSendTxToPeers(tx)
			}

		case <-w.shut:
			return
		}
	}
}
