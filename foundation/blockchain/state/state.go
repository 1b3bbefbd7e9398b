// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Set of error variables for ledger operations.
var (
	ErrSelfTransfer      = errors.New("can't send to yourself")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoCandidate       = errors.New("no transaction to mine")
	ErrChainRejected     = errors.New("chain rejected")
	ErrGenesisExists     = errors.New("genesis block already exists")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx(tx database.Tx)
}

// Network interface represents the behavior required to be implemented by any
// package providing support for talking to other nodes.
type Network interface {
	SendTxToPeers(tx database.Tx)
	SendChainToPeers(chain *database.Chain[database.MinedTx])
	RequestPeers() ([]peer.Peer, error)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Self       peer.Peer
	PrivateKey *ecdsa.PrivateKey
	Genesis    genesis.Genesis
	KnownPeers *peer.PeerSet
	Mining     bool
	EvHandler  EventHandler
}

// State manages the blockchain for a single node.
type State struct {
	self       peer.Peer
	accountID  database.AccountID
	privateKey *ecdsa.PrivateKey
	genesis    genesis.Genesis
	difficulty database.Difficulty
	evHandler  EventHandler

	mu    sync.Mutex
	chain *database.Chain[database.MinedTx]

	mineMu sync.Mutex
	engine *pow.Engine
	mining atomic.Bool

	mempool    *mempool.Mempool
	knownPeers *peer.PeerSet

	Network Network
	Worker  Worker
}

// New constructs a new ledger with an empty chain.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.PrivateKey == nil {
		return nil, errors.New("private key is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	// The identity of the node is always tied to its signing key.
	self := cfg.Self
	self.PublicKey = signature.EncodePublicKey(cfg.PrivateKey.PublicKey)
	if err := self.Validate(); err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	difficulty := database.Difficulty{
		First:    cfg.Genesis.FirstDifficulty,
		Standard: cfg.Genesis.Difficulty,
	}

	state := State{
		self:       self,
		accountID:  database.AccountID(self.PublicKey),
		privateKey: cfg.PrivateKey,
		genesis:    cfg.Genesis,
		difficulty: difficulty,
		evHandler:  ev,
		chain:      database.NewChain[database.MinedTx](difficulty),
		engine:     pow.New(ev),
		mempool:    mempool.New(),
		knownPeers: knownPeers,
	}

	state.SetMining(cfg.Mining)

	// The Network and Worker are not set here. The p2p and worker packages
	// will assign themselves when the node is started.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop any search in flight.
	s.engine.Stop()

	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Difficulty returns the difficulty settings blocks are mined at.
func (s *State) Difficulty() database.Difficulty {
	return s.difficulty
}
