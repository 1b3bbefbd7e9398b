package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

// NetSendTxToPeers shares a new transaction with the known peers.
func (s *State) NetSendTxToPeers(tx database.Tx) {
	if s.Network == nil {
		return
	}

	s.evHandler("state: NetSendTxToPeers: started: tx[%s]", tx)
	defer s.evHandler("state: NetSendTxToPeers: completed")

	s.Network.SendTxToPeers(tx)
}

// NetSendChainToPeers shares a copy of the chain with the known peers.
func (s *State) NetSendChainToPeers(chain *database.Chain[database.MinedTx]) {
	if s.Network == nil {
		return
	}

	s.evHandler("state: NetSendChainToPeers: started: length[%d]", chain.Length())
	defer s.evHandler("state: NetSendChainToPeers: completed")

	s.Network.SendChainToPeers(chain)
}

// NetRequestPeers asks the network for the list of nodes and adds any new
// nodes to the known peer list. The number of new peers is returned.
func (s *State) NetRequestPeers() (int, error) {
	if s.Network == nil {
		return 0, nil
	}

	peers, err := s.Network.RequestPeers()
	if err != nil {
		return 0, err
	}

	var added int
	for _, p := range peers {
		if s.AddKnownPeer(p) {
			added++
		}
	}

	return added, nil
}

// AddKnownPeer provides the ability to add a new peer to the known peer
// list. Peers with an incomplete identity and this node are ignored.
func (s *State) AddKnownPeer(p peer.Peer) bool {
	if p.Match(s.self.Host()) {
		return false
	}

	if err := p.Validate(); err != nil {
		s.evHandler("state: AddKnownPeer: ignored: %s", err)
		return false
	}

	if !s.knownPeers.Add(p) {
		return false
	}

	s.evHandler("state: AddKnownPeer: added: peer[%s]", p)

	return true
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(p peer.Peer) {
	s.knownPeers.Remove(p)
}

// LookupPeer returns the known peer that owns the account.
func (s *State) LookupPeer(account database.AccountID) (peer.Peer, bool) {
	if string(account) == s.self.PublicKey {
		return s.self, true
	}

	return s.knownPeers.Lookup(string(account))
}
