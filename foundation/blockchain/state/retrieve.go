package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

// RetrieveSelf returns the identity of this node.
func (s *State) RetrieveSelf() peer.Peer {
	return s.self
}

// RetrieveAccountID returns the account of this node.
func (s *State) RetrieveAccountID() database.AccountID {
	return s.accountID
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveChain returns a copy of the chain.
func (s *State) RetrieveChain() *database.Chain[database.MinedTx] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Clone()
}

// RetrieveMempool returns a copy of the mempool in queue order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list without
// this node.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.self.Host())
}
