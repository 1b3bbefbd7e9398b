package state

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
)

// Snapshot captures the state of the node for storage.
func (s *State) Snapshot() storage.Snapshot {
	s.mu.Lock()
	blocks := s.chain.Blocks()
	s.mu.Unlock()

	return storage.Snapshot{
		Self:       s.self,
		PrivateKey: signature.EncodePrivateKey(s.privateKey),
		Mining:     s.IsMining(),
		Chain:      blocks,
		Pool:       s.mempool.Copy(),
		Peers:      s.knownPeers.Copy(s.self.Host()),
	}
}

// FromSnapshot constructs a ledger from a stored snapshot. The chain must
// pass every ledger rule for the node to start.
func FromSnapshot(snap storage.Snapshot, gen genesis.Genesis, evHandler EventHandler) (*State, error) {
	pk, err := signature.DecodePrivateKey(snap.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}

	s, err := New(Config{
		Self:       snap.Self,
		PrivateKey: pk,
		Genesis:    gen,
		KnownPeers: peer.NewPeerSet(),
		Mining:     snap.Mining,
		EvHandler:  evHandler,
	})
	if err != nil {
		return nil, err
	}

	chain := database.FromBlocks(s.difficulty, snap.Chain)
	if err := ValidateChain(chain, gen); err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrCorruptSnapshot, err)
	}
	s.chain = chain

	for _, tx := range snap.Pool {
		s.addTransaction(tx)
	}

	for _, p := range snap.Peers {
		s.AddKnownPeer(p)
	}

	return s, nil
}
