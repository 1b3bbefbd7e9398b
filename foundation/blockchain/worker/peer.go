package worker

// directoryLoop registers with the directory on every tick.
func (w *Worker) directoryLoop() {
	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.discoverPeers("tick")
			}

		case <-w.shut:
			return
		}
	}
}

// discoverPeers adds the peers the directory knows about to the known peers.
func (w *Worker) discoverPeers(reason string) {
	added, err := w.state.NetRequestPeers()
	if err != nil {
		w.evHandler("worker: discoverPeers: %s: ERROR: %s", reason, err)
		return
	}

	w.evHandler("worker: discoverPeers: %s: added[%d] known[%d]", reason, added, len(w.state.RetrieveKnownPeers()))
}
